package regstore

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/ambrsb/shmbus/internal/regerr"
	"github.com/ambrsb/shmbus/internal/regtypes"
)

const itemsTable = "ITEMS"

// DefaultPath is where OpenPersistent puts the database when the caller
// passes an empty path.
const DefaultPath = "registry.sqlite"

// Persistent is the SQLite-backed RegistryStore variant. It persists the
// item set across process restarts, table ITEMS(NAME, LOCA), primary key
// (NAME, LOCA). Lookup matches by substring against the same column the
// in-memory variant matches against, so the two variants are
// interchangeable behind Store.
type Persistent struct {
	db *sql.DB

	callbacksMu sync.RWMutex
	callbacks   []callbackReg

	cache redis.Cmdable
}

// PersistentOption configures optional behavior of a Persistent store.
type PersistentOption func(*Persistent)

// WithCache attaches a Redis read-through cache for Lookup results. Cache
// errors never fail a Lookup call; they only cause it to fall through to
// SQLite, matching the gateway's fail-open policy toward Redis outages.
func WithCache(c redis.Cmdable) PersistentOption {
	return func(p *Persistent) { p.cache = c }
}

// OpenPersistent opens (creating if absent) a SQLite database at path
// (DefaultPath if empty) and ensures the ITEMS table exists.
func OpenPersistent(path string, opts ...PersistentOption) (*Persistent, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("regstore: open %q: %w", path, regerr.ErrStorageFault)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("regstore: ping %q: %w", path, regerr.ErrStorageFault)
	}

	p := &Persistent{db: db}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Persistent) initSchema() error {
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (NAME TEXT NOT NULL, LOCA TEXT NOT NULL, PRIMARY KEY(NAME, LOCA));`,
		itemsTable)
	if _, err := p.db.Exec(query); err != nil {
		return fmt.Errorf("regstore: init schema: %w", regerr.ErrStorageFault)
	}
	return nil
}

// Close releases the underlying database handle.
func (p *Persistent) Close() error {
	return p.db.Close()
}

func (p *Persistent) Register(ri regtypes.RegItem) error {
	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (NAME, LOCA) VALUES (?, ?);`, itemsTable)
	if _, err := p.db.Exec(query, ri.Owner(), ri.Location().Name); err != nil {
		return fmt.Errorf("regstore: insert %q: %w", ri.Owner(), regerr.ErrStorageFault)
	}
	p.invalidateCache()
	p.evaluateCallbacks()
	return nil
}

func (p *Persistent) Unregister(ri regtypes.RegItem) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE NAME = ? AND LOCA = ?;`, itemsTable)
	if _, err := p.db.Exec(query, ri.Owner(), ri.Location().Name); err != nil {
		return fmt.Errorf("regstore: delete %q: %w", ri.Owner(), regerr.ErrStorageFault)
	}
	p.invalidateCache()
	p.evaluateCallbacks()
	return nil
}

func (p *Persistent) Lookup(f regtypes.Filter) ([]regtypes.RegItem, error) {
	if p.cache != nil {
		if items, ok := p.lookupCache(f); ok {
			return items, nil
		}
	}

	items, err := p.lookupDB(f)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.storeCache(f, items)
	}
	return items, nil
}

func (p *Persistent) lookupDB(f regtypes.Filter) ([]regtypes.RegItem, error) {
	query := fmt.Sprintf(`SELECT NAME, LOCA FROM %s WHERE instr(NAME, ?) > 0;`, itemsTable)
	rows, err := p.db.Query(query, string(f))
	if err != nil {
		return nil, fmt.Errorf("regstore: lookup %q: %w", f, regerr.ErrStorageFault)
	}
	defer rows.Close()

	var items []regtypes.RegItem
	for rows.Next() {
		var name, loca string
		if err := rows.Scan(&name, &loca); err != nil {
			return nil, fmt.Errorf("regstore: scan lookup %q: %w", f, regerr.ErrStorageFault)
		}
		ri, err := regtypes.NewRegItem(name, regtypes.NewNearLocation(loca))
		if err != nil {
			continue
		}
		items = append(items, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("regstore: iterate lookup %q: %w", f, regerr.ErrStorageFault)
	}
	return items, nil
}

func (p *Persistent) AddCallback(f regtypes.Filter, cb regtypes.Callback) {
	p.callbacksMu.Lock()
	p.callbacks = append(p.callbacks, callbackReg{filter: f, cb: cb})
	p.callbacksMu.Unlock()

	match, err := p.lookupDB(f)
	if err != nil {
		return
	}
	cb(match)
}

func (p *Persistent) RemoveCallback(f regtypes.Filter, cb regtypes.Callback) {
	target := reflect.ValueOf(cb).Pointer()

	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()
	for i, reg := range p.callbacks {
		if reg.filter == f && reflect.ValueOf(reg.cb).Pointer() == target {
			p.callbacks = append(p.callbacks[:i], p.callbacks[i+1:]...)
			return
		}
	}
}

func (p *Persistent) evaluateCallbacks() {
	p.callbacksMu.RLock()
	defer p.callbacksMu.RUnlock()
	for _, reg := range p.callbacks {
		match, err := p.lookupDB(reg.filter)
		if err != nil {
			continue
		}
		reg.cb(match)
	}
}

// genKey is the Redis counter every Register/Unregister bumps. Cached
// Lookup entries embed the generation they were written under, so a bump
// orphans every stale entry at once without enumerating keys; the TTL
// reaps the orphans.
const genKey = "shmbus:regstore:gen"

// cacheKey namespaces this store's entries inside a shared Redis instance.
func (p *Persistent) cacheKey(ctx context.Context, f regtypes.Filter) (string, error) {
	gen, err := p.cache.Get(ctx, genKey).Result()
	if err == redis.Nil {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	return "shmbus:regstore:lookup:" + gen + ":" + string(f), nil
}

// invalidateCache bumps the generation counter. Fail-open: a Redis error
// only means stale entries live out their TTL.
func (p *Persistent) invalidateCache() {
	if p.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	p.cache.Incr(ctx, genKey)
}

func (p *Persistent) lookupCache(f regtypes.Filter) ([]regtypes.RegItem, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key, err := p.cacheKey(ctx, f)
	if err != nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}

	var items []regtypes.RegItem
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		ri, err := regtypes.NewRegItem(parts[0], regtypes.NewNearLocation(parts[1]))
		if err != nil {
			continue
		}
		items = append(items, ri)
	}
	return items, true
}

func (p *Persistent) storeCache(f regtypes.Filter, items []regtypes.RegItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key, err := p.cacheKey(ctx, f)
	if err != nil {
		return
	}

	var b strings.Builder
	for _, it := range items {
		b.WriteString(it.Owner())
		b.WriteByte('\t')
		b.WriteString(it.Location().Name)
		b.WriteByte('\n')
	}
	// Fire-and-forget: a failed cache write only means the next Lookup
	// misses the cache and falls through to SQLite again.
	p.cache.Set(ctx, key, b.String(), 5*time.Second)
}
