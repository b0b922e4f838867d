package redis

import (
	"context"
	"sort"
	"strconv"

	"github.com/arcforge/loredex/internal/db"
)

// versionedSetScript replaces the hash at KEYS[1] unless it already carries
// a version (ARGV[1] field name) at or above ARGV[2]. The DEL keeps stale
// fields of the previous revision from lingering. Runs atomically, so a
// concurrent reader sees either the old hash or the new one, never a mix.
const versionedSetScript = `local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('DEL', KEYS[1])
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
return 1`

// HSetVersioned atomically writes fields under key, guarded by versionField.
// Returns false when the stored version is newer or equal (write skipped).
func (s *Store) HSetVersioned(
	ctx context.Context, key, versionField string, version int64, fields map[string]string,
) (bool, error) {
	args := make([]string, 0, 2+2*len(fields))
	args = append(args, versionField, strconv.FormatInt(version, 10))

	// Sorted field order keeps the command reproducible for identical input.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, name, fields[name])
	}

	cmd := s.b().Eval().Script(versionedSetScript).Numkeys(1).Key(key).Arg(args...).Build()
	applied, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpEval, Err: err}
	}
	return applied == 1, nil
}

// HGetAll returns all fields of a hash.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	cmd := s.b().Exists().Key(key).Build()
	count, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return count > 0, nil
}
