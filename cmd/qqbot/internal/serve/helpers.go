package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chewangneko/qqcallback/cmd/qqbot/internal"
	"github.com/chewangneko/qqcallback/pkg/channels"
	"github.com/chewangneko/qqcallback/pkg/logger"
	"github.com/chewangneko/qqcallback/pkg/store"
)

func serveCmd(ctx context.Context, debug bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return fmt.Errorf("invalid config %s: %w", internal.GetConfigPath(), err)
	}
	if err := internal.SetupLogging(cfg, debug); err != nil {
		return err
	}
	defer logger.DisableFileLogging()
	if debug {
		fmt.Println("🔍 Debug mode enabled")
	}

	var db *store.Database
	if cfg.Database.Enabled {
		db, err = internal.OpenStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("error opening user store: %w", err)
		}
		defer db.Close()
		fmt.Printf("✓ User store connected (%s)\n", cfg.Database.Driver)
	} else {
		fmt.Println("⚠ User store disabled")
	}

	session := NewDemoSession(DemoOptions{
		Prefixes:   cfg.Commands.Prefixes,
		AvatarAPI:  cfg.Bot.AvatarAPI,
		AvatarSize: cfg.Bot.AvatarSize,
	})

	qq, err := channels.NewQQChannel(cfg, session, db)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := qq.Start(ctx); err != nil {
		return fmt.Errorf("error starting QQ channel: %w", err)
	}
	fmt.Printf("✓ QQ bot started with %d commands\n", session.Len())
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	if err := qq.Stop(context.Background()); err != nil {
		logger.ErrorCF("qq", "Error stopping QQ channel", map[string]interface{}{
			"error": err.Error(),
		})
	}
	fmt.Println("✓ QQ bot stopped")
	return nil
}
