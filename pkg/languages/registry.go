// Package languages provides the language catalogue of both Judge0 flavors:
// cached per-flavor listings, a merged listing for pickers, per-language
// details and static lookup tables for file extensions and editor modes.
package languages

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/judge0"
)

// Source fetches language data from Judge0. *judge0.Client implements it.
type Source interface {
	ListLanguages(ctx context.Context, flavor judge0.Flavor) ([]judge0.Language, error)
	GetLanguage(ctx context.Context, flavor judge0.Flavor, id int) (*judge0.Language, error)
}

// Entry is one row of the merged language list.
type Entry struct {
	judge0.Language
	Mode string `json:"mode"`
}

type key struct {
	flavor judge0.Flavor
	id     int
}

// Registry caches language listings and details for the lifetime of the
// process. Entries are never evicted.
type Registry struct {
	src   Source
	group singleflight.Group

	mu      sync.RWMutex
	lists   map[judge0.Flavor][]judge0.Language
	details map[key]*judge0.Language
}

// NewRegistry creates a Registry backed by src.
func NewRegistry(src Source) *Registry {
	return &Registry{
		src:     src,
		lists:   make(map[judge0.Flavor][]judge0.Language),
		details: make(map[key]*judge0.Language),
	}
}

// List returns the languages of one flavor, fetching them on first use.
// The multi-file program pseudo-language is omitted.
func (r *Registry) List(ctx context.Context, flavor judge0.Flavor) ([]judge0.Language, error) {
	if !flavor.Valid() {
		return nil, fmt.Errorf("unknown flavor %s", flavor)
	}

	r.mu.RLock()
	cached, ok := r.lists[flavor]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do("list:"+flavor.String(), func() (any, error) {
		langs, err := r.src.ListLanguages(ctx, flavor)
		if err != nil {
			return nil, err
		}
		out := make([]judge0.Language, 0, len(langs))
		for _, l := range langs {
			if l.ID == judge0.LanguageMultiFileProgram {
				continue
			}
			l.Flavor = flavor
			out = append(out, l)
		}
		r.mu.Lock()
		r.lists[flavor] = out
		r.mu.Unlock()
		debug.Log("languages", "listing cached", "flavor", flavor.String(), "count", len(out))
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]judge0.Language), nil
}

// Merged returns the languages of every flavor as one list sorted by name.
// When both flavors offer a language with the same display name, the CE
// entry wins. A flavor that cannot be listed is logged and skipped; an
// error is returned only when no flavor could be listed.
func (r *Registry) Merged(ctx context.Context) ([]Entry, error) {
	seen := make(map[string]bool)
	var (
		out     []Entry
		lastErr error
		okCount int
	)
	for _, f := range judge0.Flavors {
		langs, err := r.List(ctx, f)
		if err != nil {
			slog.Warn("language listing failed", "flavor", f.String(), "error", err)
			lastErr = err
			continue
		}
		okCount++
		for _, l := range langs {
			if seen[l.Name] {
				continue
			}
			seen[l.Name] = true
			out = append(out, Entry{Language: l, Mode: EditorMode(l.Name)})
		}
	}
	if okCount == 0 && lastErr != nil {
		return nil, lastErr
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the details of one language, including its source file name.
func (r *Registry) Get(ctx context.Context, flavor judge0.Flavor, id int) (*judge0.Language, error) {
	k := key{flavor, id}

	r.mu.RLock()
	cached, ok := r.details[k]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do("get:"+flavor.String()+":"+strconv.Itoa(id), func() (any, error) {
		lang, err := r.src.GetLanguage(ctx, flavor, id)
		if err != nil {
			return nil, err
		}
		lang.Flavor = flavor
		r.mu.Lock()
		r.details[k] = lang
		r.mu.Unlock()
		return lang, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*judge0.Language), nil
}

// Default returns the language preselected for new sessions.
func (r *Registry) Default(ctx context.Context) (*judge0.Language, error) {
	return r.Get(ctx, judge0.FlavorCE, judge0.LanguageDefault)
}

// Has reports whether flavor lists the language id. A flavor that cannot be
// listed offers nothing.
func (r *Registry) Has(ctx context.Context, flavor judge0.Flavor, id int) bool {
	langs, err := r.List(ctx, flavor)
	if err != nil {
		return false
	}
	for _, l := range langs {
		if l.ID == id {
			return true
		}
	}
	return false
}
