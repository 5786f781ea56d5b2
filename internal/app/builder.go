// Package app wires configuration into a running board session and owns the
// frame loop every request is serialized onto.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/park285/cheese-hopboard/internal/assets"
	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/config"
	"github.com/park285/cheese-hopboard/internal/journal"
	"github.com/park285/cheese-hopboard/internal/msgcat"
	"github.com/park285/cheese-hopboard/internal/pieces"
	"github.com/park285/cheese-hopboard/internal/render"
	"github.com/park285/cheese-hopboard/internal/scene"
	"github.com/park285/cheese-hopboard/internal/script"
	"github.com/park285/cheese-hopboard/internal/session"
	"github.com/park285/cheese-hopboard/internal/view"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Config   *config.AppConfig
	Catalog  *msgcat.Catalog
	Coords   board.Coords
	Registry *pieces.Registry
	Scene    *scene.Scene
	Session  *session.Controller
	View     *view.Controller
	Renderer *render.Renderer
	Journal  *journal.Sink
	// Script is nil unless MoveScript is set.
	Script   *script.Chooser
}

// Options overrides parts of Build for tests and embedding.
type Options struct {
	Rand    session.Rand
	Assets  *assets.Loader
	Journal *journal.Sink
}

// Build assembles a session from cfg. Asset failures are fatal.
func Build(cfg *config.AppConfig, logger *zap.Logger, opts Options) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	loader := opts.Assets
	if loader == nil {
		loader = assets.NewLoader(nil, cfg.SpriteSize)
	}
	models, err := loader.LoadAll()
	if err != nil {
		var ae *assets.AssetLoadError
		if errors.As(err, &ae) {
			logger.Error("asset_load_failed",
				zap.String("asset", ae.Name),
				zap.String("message", catalog.Text("error.asset_load", map[string]any{"Name": ae.Name}, "could not load "+ae.Name)),
				zap.Error(ae.Err),
			)
		}
		return nil, fmt.Errorf("load piece models: %w", err)
	}

	variant, err := session.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	start, err := pieces.ParseColor(cfg.StartColor)
	if err != nil {
		return nil, err
	}

	coords := board.DefaultCoords()
	reg := pieces.NewRegistry(board.NewOccupancy(coords))
	if err := reg.Populate(variant.Layout(coords.Size)); err != nil {
		return nil, fmt.Errorf("populate board: %w", err)
	}
	scn := scene.New(coords)
	for _, p := range reg.All() {
		scn.Add(p.ID, models[p.Color][p.Kind], p.Kind.Letter(), scene.Vec3{}, scene.GroupBoard)
	}

	rng := opts.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	ctrl, err := session.New(reg, scn, rng, session.Config{
		Variant:       variant,
		StartColor:    start,
		LiftHeight:    cfg.LiftHeight,
		Step:          cfg.Step,
		PostMoveDelay: cfg.MoveDelay,
		CaptureBias:   cfg.CaptureBias,
		BoardBias:     cfg.BoardBias,
	}, logger.Named("session"))
	if err != nil {
		return nil, err
	}
	var chooser *script.Chooser
	if strings.TrimSpace(cfg.MoveScript) != "" {
		chooser, err = script.Load(cfg.MoveScript, logger.Named("script"))
		if err != nil {
			return nil, err
		}
		ctrl.SetChooser(chooser)
	}

	cams, err := view.LoadPresets(cfg.CameraPresets)
	if err != nil {
		chooser.Close()
		return nil, fmt.Errorf("camera presets: %w", err)
	}
	v, err := view.New(cams, cfg.ViewWidth, cfg.ViewHeight)
	if err != nil {
		chooser.Close()
		return nil, err
	}
	if !v.Select(cfg.StartCamera) {
		logger.Warn("start_camera_out_of_range", zap.Int("camera", cfg.StartCamera), zap.Int("cameras", v.Len()))
	}

	sink := opts.Journal
	if sink == nil {
		sink, err = buildJournal(cfg, logger.Named("journal"))
		if err != nil {
			chooser.Close()
			return nil, err
		}
	}

	logger.Info("session_built",
		zap.String("session", ctrl.State().SessionID),
		zap.String("variant", string(variant)),
		zap.Int("pieces", reg.Len()),
		zap.Int("camera", v.ActiveIndex()),
		zap.Bool("journal", sink.Enabled()),
		zap.Bool("script", chooser != nil),
	)
	return &Deps{
		Config:   cfg,
		Catalog:  catalog,
		Coords:   coords,
		Registry: reg,
		Scene:    scn,
		Session:  ctrl,
		View:     v,
		Renderer: render.New(coords),
		Journal:  sink,
		Script:   chooser,
	}, nil
}

// buildJournal connects the optional Redis store and Postgres repository.
func buildJournal(cfg *config.AppConfig, logger *zap.Logger) (*journal.Sink, error) {
	var store *journal.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		ropts, err := journal.ParseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		store = journal.NewStore(redis.NewClient(ropts), cfg.SessionTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}
	var repo *journal.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		r, err := journal.NewRepository(cfg.DatabaseURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo = r
	}
	return journal.NewSink(store, repo, logger), nil
}
