package providers

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/inkcircle/inkcircle-server/internal/config"
	"github.com/inkcircle/inkcircle-server/internal/logger"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/inkcircle/inkcircle-server/internal/store/badgerdb"
	"github.com/inkcircle/inkcircle-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured catalog store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	var (
		st   store.Store
		path string
		err  error
	)
	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		path = filepath.Join(cfg.Storage.DataPath, "inkcircle.db")
		st, err = sqlite.Open(path, log.Logger)
	case config.StorageBadger:
		path = filepath.Join(cfg.Storage.DataPath, "db")
		st, err = badgerdb.New(path, log.Logger, badgerdb.Options{OnConflict: m.StoreConflict})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Storage.Backend, "path", path)

	return &StoreHandle{Store: st}, nil
}
