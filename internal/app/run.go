package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/livelink"
	"github.com/specialistvlad/cookgraph/internal/scene"
	"github.com/specialistvlad/cookgraph/internal/scenefile"
)

// Run loads the scene and cooks every frame of the configured range.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		err = errors.Join(err, a.closeHealthCheckServer())
	}()

	frames, err := ParseFrames(a.config.Frames)
	if err != nil {
		return err
	}

	doc, err := scenefile.Load(ctx, a.config.ScenePath)
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}

	s := scene.New(a.registry, scene.WithFPS(doc.FPS))
	a.scene.Store(s)
	a.logger.Info("Scene created.", "scene", s.ID(), "fps", s.FPS(), "kinds", a.registry.Kinds())

	if a.config.LiveLinkURL != "" {
		pub, err := livelink.Dial(ctx, livelink.Config{
			URL:     a.config.LiveLinkURL,
			Timeout: a.config.LiveLinkTimeout,
		}, s.ID(), s.Describe)
		if err != nil {
			return err
		}
		defer pub.Close()
		s.Cooker().AddListener(pub.Listener())
	}

	s.SetFrame(frames.Start)
	if err := doc.Apply(ctx, s); err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}
	if len(s.Nodes()) == 0 {
		a.logger.Warn("No nodes found in scene, cooking not required.")
		return nil
	}

	a.logger.Info("🚀 Cooking frames...", "start", frames.Start, "end", frames.End)
	for f := frames.Start; f <= frames.End; f++ {
		s.SetFrame(f)
		if err := s.Cook(ctx); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
		a.reportFrame(ctx, s)
	}

	a.reportStats(s)
	a.logger.Info("🏁 Cooking finished.", "frames", frames.Len())
	a.logger.Debug("App.Run method finished.")
	return nil
}

// reportFrame logs the output of every node of the scene.
func (a *App) reportFrame(ctx context.Context, s *scene.Scene) {
	failed := 0
	for _, n := range s.Nodes() {
		out, err := s.Output(ctx, n)
		if err != nil {
			failed++
			a.logger.Debug("Node output.", "frame", s.Frame(), "node", n.Path(), "error", err)
			continue
		}
		a.logger.Debug("Node output.", "frame", s.Frame(), "node", n.Path(), "output", fmt.Sprint(out))
	}
	a.logger.Info("Frame cooked.", "frame", s.Frame(), "failed", failed, "pending_references", s.PendingReferences())
}

func (a *App) reportStats(s *scene.Scene) {
	stats := s.Stats()
	for id, ns := range stats.Nodes {
		a.logger.Debug("Node stats.", "node", s.Describe(id), "cooks", ns.CookCount, "errors", ns.ErrorCount, "total", ns.TotalDuration)
	}
	a.logger.Info("Cook statistics.", "batches", stats.Batches, "skipped", stats.Skipped, "nodes", len(stats.Nodes))
}
