// Package realms keeps the live directory of world servers. The registry
// is rebuilt from the auth database on a timer and published as an
// immutable snapshot, so readers never block the refresh and never see a
// half-built list.
package realms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/logging"
	"github.com/dmitrijs2005/realmd/internal/server/metrics"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/builds"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/realmlist"
	"github.com/google/uuid"
)

// exit is a seam for tests; a corrupt realm row stops the process.
var exit = os.Exit

// Resolver turns a realm host into an address of the given family.
type Resolver interface {
	Resolve(ctx context.Context, network, host string) (netip.Addr, bool)
}

// RefreshListener is called with the published realms, sorted by name,
// after every successful refresh. It runs on the refresh goroutine; the
// next refresh is not scheduled until it returns.
type RefreshListener func(ctx context.Context, realms []models.Realm)

type snapshot struct {
	byID   map[uint32]models.Realm
	sorted []models.Realm
}

func newSnapshot(byID map[uint32]models.Realm) *snapshot {
	s := &snapshot{byID: byID, sorted: make([]models.Realm, 0, len(byID))}
	for _, r := range byID {
		s.sorted = append(s.sorted, r)
	}
	sort.Slice(s.sorted, func(i, j int) bool {
		if s.sorted[i].Name != s.sorted[j].Name {
			return s.sorted[i].Name < s.sorted[j].Name
		}
		return s.sorted[i].ID < s.sorted[j].ID
	})
	return s
}

type Registry struct {
	realms    realmlist.Repository
	builds    builds.Repository
	resolver  Resolver
	logger    logging.Logger
	clock     clock.Clock
	metrics   *metrics.Metrics
	listeners []RefreshListener

	current     atomic.Pointer[snapshot]
	buildTable  atomic.Pointer[BuildTable]
	initialized atomic.Bool

	refreshMu sync.Mutex

	mu       sync.Mutex
	interval time.Duration
	timer    *clock.Timer
	done     chan struct{}
	closed   bool
}

type Option func(*Registry)

func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithListener(l RefreshListener) Option {
	return func(r *Registry) { r.listeners = append(r.listeners, l) }
}

func NewRegistry(realmsRepo realmlist.Repository, buildsRepo builds.Repository, resolver Resolver, logger logging.Logger, opts ...Option) *Registry {
	r := &Registry{
		realms:   realmsRepo,
		builds:   buildsRepo,
		resolver: resolver,
		logger:   logger.With("module", "realms"),
		clock:    clock.New(),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	r.current.Store(newSnapshot(map[uint32]models.Realm{}))
	return r
}

// Initialize loads the build table, performs the first refresh and, for a
// positive interval, arms the refresh timer consumed by Run.
func (r *Registry) Initialize(ctx context.Context, interval time.Duration) error {
	table, err := LoadBuildTable(ctx, r.builds)
	if err != nil {
		return err
	}
	r.buildTable.Store(table)
	r.logger.Info(ctx, "loaded client builds", "count", len(table.builds))

	r.Refresh(ctx)

	r.mu.Lock()
	r.interval = interval
	if interval > 0 && !r.closed {
		r.timer = r.clock.Timer(interval)
	}
	r.mu.Unlock()

	r.initialized.Store(true)
	return nil
}

// Initialized reports whether Initialize completed.
func (r *Registry) Initialized() bool { return r.initialized.Load() }

// Run drives periodic refreshes until ctx is done or Close is called. The
// timer is re-armed only once a refresh and its listeners have finished.
func (r *Registry) Run(ctx context.Context) error {
	r.mu.Lock()
	timer := r.timer
	r.mu.Unlock()

	if timer == nil {
		select {
		case <-ctx.Done():
		case <-r.done:
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.done:
			return nil
		case <-timer.C:
			r.Refresh(ctx)

			r.mu.Lock()
			if !r.closed {
				timer.Reset(r.interval)
			}
			r.mu.Unlock()
		}
	}
}

// Close stops future refreshes. A refresh already in progress completes.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	close(r.done)
}

// Refresh rebuilds the registry from storage. Realms whose addresses do not
// resolve are left out. A failing query keeps the previous registry; a
// corrupt row terminates the process.
func (r *Registry) Refresh(ctx context.Context) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	start := r.clock.Now()
	log := r.logger.With("cycle", uuid.NewString())

	rows, err := r.realms.List(ctx)
	if err != nil {
		if errors.Is(err, common.ErrCorruptRow) {
			r.fatal(ctx, log, start, err)
			return
		}
		log.Error(ctx, "realm list query failed, keeping previous registry", "error", err)
		r.metrics.ObserveRefresh(metrics.RefreshQueryError, r.clock.Since(start).Seconds())
		return
	}

	prev := r.current.Load()
	next := make(map[uint32]models.Realm, len(rows))

	for _, row := range rows {
		realm, err := realmFromRow(row)
		if err != nil {
			r.fatal(ctx, log, start, err)
			return
		}
		if !r.resolveAddresses(ctx, log, row, &realm) {
			continue
		}

		next[realm.ID] = realm
		if _, ok := prev.byID[realm.ID]; ok {
			log.Debug(ctx, "updating realm", "id", realm.ID, "name", realm.Name)
		} else {
			log.Info(ctx, "added realm", "id", realm.ID, "name", realm.Name,
				"address", realm.ExternalAddress.String(), "port", realm.Port)
		}
	}

	published := newSnapshot(next)
	r.current.Store(published)

	for _, old := range prev.sorted {
		if _, ok := next[old.ID]; !ok {
			log.Info(ctx, "removed realm", "name", old.Name)
		}
	}

	r.metrics.SetRealms(len(next))
	r.metrics.ObserveRefresh(metrics.RefreshOK, r.clock.Since(start).Seconds())

	for _, l := range r.listeners {
		l(ctx, append([]models.Realm(nil), published.sorted...))
	}
}

func (r *Registry) fatal(ctx context.Context, log logging.Logger, start time.Time, err error) {
	log.Error(ctx, "corrupt realm row, stopping", "error", err)
	r.metrics.ObserveRefresh(metrics.RefreshCorrupt, r.clock.Since(start).Seconds())
	exit(1)
}

func (r *Registry) resolveAddresses(ctx context.Context, log logging.Logger, row realmlist.Row, realm *models.Realm) bool {
	for _, f := range []struct {
		field string
		host  string
		dst   *netip.Addr
	}{
		{"address", row.Address, &realm.ExternalAddress},
		{"local_address", row.LocalAddress, &realm.LocalAddress},
		{"local_subnet_mask", row.LocalSubnetMask, &realm.LocalSubnetMask},
	} {
		addr, ok := r.resolver.Resolve(ctx, "ip4", f.host)
		if !ok {
			log.Error(ctx, "could not resolve address",
				"field", f.field, "address", f.host, "realm", row.Name, "id", row.ID)
			r.metrics.ResolveFailed(f.field)
			return false
		}
		*f.dst = addr
	}
	return true
}

func realmFromRow(row realmlist.Row) (models.Realm, error) {
	for _, f := range []struct {
		name string
		v    int64
		max  int64
	}{
		{"id", row.ID, math.MaxUint32},
		{"port", row.Port, math.MaxUint16},
		{"icon", row.Icon, math.MaxUint8},
		{"flag", row.Flag, math.MaxUint8},
		{"timezone", row.Timezone, math.MaxUint8},
		{"allowed_security_level", row.AllowedSecurityLevel, math.MaxUint8},
		{"gamebuild", row.Build, math.MaxUint32},
	} {
		if f.v < 0 || f.v > f.max {
			return models.Realm{}, fmt.Errorf("%w: realm %q %s %d out of range", common.ErrCorruptRow, row.Name, f.name, f.v)
		}
	}

	security := models.AccountType(row.AllowedSecurityLevel)
	if security > models.SecAdministrator {
		security = models.SecAdministrator
	}

	return models.Realm{
		ID:                   uint32(row.ID),
		Name:                 row.Name,
		Build:                uint32(row.Build),
		Port:                 uint16(row.Port),
		Type:                 models.NormalizeRealmType(uint8(row.Icon)),
		Flags:                models.RealmFlags(row.Flag),
		Timezone:             uint8(row.Timezone),
		AllowedSecurityLevel: security,
		PopulationLevel:      float32(row.Population),
	}, nil
}

// GetRealm returns the realm with the given id from the current snapshot.
func (r *Registry) GetRealm(id uint32) (models.Realm, bool) {
	realm, ok := r.current.Load().byID[id]
	return realm, ok
}

// Realms returns the current snapshot sorted by name.
func (r *Registry) Realms() []models.Realm {
	return append([]models.Realm(nil), r.current.Load().sorted...)
}

// GetBuildInfo looks up a client build. It reports false before
// Initialize has loaded the table.
func (r *Registry) GetBuildInfo(build uint32) (models.BuildInfo, bool) {
	t := r.buildTable.Load()
	if t == nil {
		return models.BuildInfo{}, false
	}
	return t.Get(build)
}

// Builds returns every known build in ascending order.
func (r *Registry) Builds() []models.BuildInfo {
	t := r.buildTable.Load()
	if t == nil {
		return nil
	}
	return t.All()
}
