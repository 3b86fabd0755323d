package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tvcore/internal/config"
	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/routes"
	"tvcore/internal/services"
	"tvcore/internal/store"
)

// Catalog is the in-memory view of the persisted channel list.
type Catalog struct {
	store    *store.Store
	services middleware.ServiceControl
	table    *routes.Table
	cfg      config.Channels
	logger   *slog.Logger

	// replaceMu is held while the persisted list is replaced and while
	// writers keyed by channel id run under WithGeneration.
	replaceMu  sync.Mutex
	mu         sync.RWMutex
	channels   []store.Channel
	ipSeeds    []IPChannel
	generation uint64
}

// New builds a catalog. Call Init before any lookup.
func New(st *store.Store, svc middleware.ServiceControl, table *routes.Table, cfg config.Channels, logger *slog.Logger) *Catalog {
	return &Catalog{
		store:    st,
		services: svc,
		table:    table,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "catalog"),
	}
}

// Init loads persisted channels. With seeding enabled the IP seed file is
// read first. An empty catalog is rebuilt from the middleware master list
// immediately, so services installed outside a scan and seeded IP channels
// are available before the first scan.
func (c *Catalog) Init(ctx context.Context) error {
	if c.cfg.IPSeedEnabled && c.cfg.IPSeedFile != "" {
		seeds, err := LoadIPSeed(c.cfg.IPSeedFile)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "catalog", "load ip seed", c.cfg.IPSeedFile, err)
		}
		c.mu.Lock()
		c.ipSeeds = seeds
		c.mu.Unlock()
		c.logger.Debug("ip channel seed loaded", logging.Int("count", len(seeds)))
	}

	if err := c.reload(ctx); err != nil {
		return err
	}
	if c.Size() > 0 {
		c.logger.Info("channel catalog loaded", logging.Int("channels", c.Size()))
		return nil
	}
	c.logger.Info("channel catalog empty; building initial list")
	if err := c.Refresh(ctx, c.defaultTechnology()); err != nil {
		return err
	}
	if c.Size() == 0 {
		c.logger.Info("master list empty; run a scan to populate the catalog")
	}
	return nil
}

// defaultTechnology is the first broadcast technology with a live route,
// falling back to IP.
func (c *Catalog) defaultTechnology() routes.Technology {
	for _, tech := range []routes.Technology{routes.Terrestrial, routes.Cable, routes.Satellite} {
		if c.table.RouteFor(tech, routes.KindLive) != nil {
			return tech
		}
	}
	return routes.IPPrimary
}

// Refresh rebuilds the catalog from the middleware master list. Broadcast
// services come first, then seeded IP channels; display numbers are
// assigned contiguously from 01. The previous channels and their programs
// are replaced in one transaction and the in-memory list is reloaded from
// the store.
func (c *Catalog) Refresh(ctx context.Context, tech routes.Technology) error {
	channels, err := c.enumerate(ctx, tech)
	if err != nil {
		return err
	}
	if err := c.replace(ctx, channels); err != nil {
		return err
	}
	c.logger.Info("channel catalog refreshed",
		logging.String(logging.FieldTechnology, tech.String()),
		logging.Int("channels", c.Size()),
	)
	return nil
}

func (c *Catalog) replace(ctx context.Context, channels []store.Channel) error {
	c.replaceMu.Lock()
	defer c.replaceMu.Unlock()
	if err := c.store.ReplaceChannels(ctx, channels); err != nil {
		return fmt.Errorf("persist channels: %w", err)
	}
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	return c.reload(ctx)
}

func (c *Catalog) enumerate(ctx context.Context, tech routes.Technology) ([]store.Channel, error) {
	count, err := c.services.ServiceCount(ctx, middleware.MasterList)
	if err != nil {
		return nil, services.Wrap(services.ErrMiddlewareComm, "catalog", "service count", "", err)
	}

	// The middleware keeps a media playback placeholder at index 0 whenever
	// an IP live path exists.
	first := 0
	if c.table.RouteFor(routes.IPPrimary, routes.KindLive) != nil {
		first = 1
	}

	var channels []store.Channel
	next := func() string { return fmt.Sprintf("%02d", len(channels)+1) }

	for index := first; index < count; index++ {
		svc, err := c.services.Service(ctx, middleware.MasterList, index)
		if err != nil {
			logging.WarnWithContext(c.logger, "service descriptor unavailable", "service_skipped",
				logging.Int("service_index", index),
				logging.Error(err),
				logging.String(logging.FieldImpact, "service omitted from channel list"),
			)
			continue
		}
		if svc.Kind == middleware.ServiceMediaPlayback {
			continue
		}
		if c.cfg.SkipRadio && svc.Kind.IsRadio() {
			c.logger.Debug("radio service skipped", logging.String("service", svc.Name))
			continue
		}
		channels = append(channels, store.Channel{
			DisplayNumber: next(),
			Name:          svc.Name,
			Technology:    serviceTechnology(svc, tech),
			ServiceIndex:  svc.Index,
			ServiceKind:   svc.Kind,
			Frequency:     svc.Frequency,
		})
	}

	c.mu.RLock()
	seeds := append([]IPChannel(nil), c.ipSeeds...)
	c.mu.RUnlock()
	for _, seed := range seeds {
		channels = append(channels, store.Channel{
			DisplayNumber: next(),
			Name:          seed.Name,
			URL:           seed.URL,
			Technology:    routes.IPPrimary,
			ServiceIndex:  store.NoService,
			ServiceKind:   middleware.ServiceTV,
		})
	}
	return channels, nil
}

// serviceTechnology prefers the delivery flag the middleware reports for a
// service and falls back to the scanned technology.
func serviceTechnology(svc middleware.Service, scanned routes.Technology) routes.Technology {
	if tech, ok := routes.TechnologyForFrontend(svc.Types); ok && tech.IsBroadcast() {
		return tech
	}
	if scanned.IsBroadcast() {
		return scanned
	}
	return routes.Terrestrial
}

func (c *Catalog) reload(ctx context.Context) error {
	rows, err := c.store.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	channels := make([]store.Channel, 0, len(rows))
	for _, row := range rows {
		channels = append(channels, *row)
	}
	c.mu.Lock()
	c.channels = channels
	c.mu.Unlock()
	return nil
}

// Generation changes every time Refresh replaces the channel list.
func (c *Catalog) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// WithGeneration runs fn while no refresh can replace the channel list. When
// the list was replaced after gen was read fn is not called and ok is false.
func (c *Catalog) WithGeneration(gen uint64, fn func() error) (ok bool, err error) {
	c.replaceMu.Lock()
	defer c.replaceMu.Unlock()
	if c.Generation() != gen {
		return false, nil
	}
	return true, fn()
}

// ByID returns the channel with the persisted identifier id.
func (c *Catalog) ByID(id int64) (store.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return store.Channel{}, false
}

// ByIndex returns the channel at zero-based position i in display order.
func (c *Catalog) ByIndex(i int) (store.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.channels) {
		return store.Channel{}, false
	}
	return c.channels[i], true
}

// Size returns the number of channels.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels)
}

// Channels returns a copy of every channel in display order.
func (c *Catalog) Channels() []store.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]store.Channel(nil), c.channels...)
}

// BroadcastChannels returns the channels tuned by service index.
func (c *Catalog) BroadcastChannels() []store.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []store.Channel
	for _, ch := range c.channels {
		if ch.Technology.IsBroadcast() {
			out = append(out, ch)
		}
	}
	return out
}
