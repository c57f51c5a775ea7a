package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/keepmind9/slackbridge/internal/core"
	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/keepmind9/slackbridge/internal/slack"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the slackbridge adapter",
		Long:  "Connect to Slack, normalize inbound events and serve registered reply handlers",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := core.LoadConfig(configFile)
			if err != nil {
				// Bad credentials or cache settings leave the adapter
				// non-functional rather than crashing the host process.
				log.Printf("Failed to load config: %v", err)
				return err
			}

			logConfig := logger.Config{
				Level:        config.Logging.Level,
				File:         config.Logging.File,
				MaxSize:      config.Logging.MaxSize,
				MaxBackups:   config.Logging.MaxBackups,
				MaxAge:       config.Logging.MaxAge,
				Compress:     config.Logging.Compress,
				EnableStdout: config.Logging.EnableStdout,
			}
			if err := logger.InitLogger(logConfig); err != nil {
				log.Printf("Failed to initialize logger: %v", err)
				return err
			}

			logger.WithFields(logrus.Fields{
				"config_file": configFile,
				"log_level":   config.Logging.Level,
				"storage":     config.Storage.Type,
			}).Info("logger-initialized")

			engine, err := core.NewEngine(config)
			if err != nil {
				logger.WithField("error", err).Error("engine-creation-failed")
				return err
			}

			engine.RegisterHandler(func(msg *slack.Message) (string, bool) {
				if strings.TrimSpace(msg.Text) == "ping" {
					return "pong", true
				}
				return "", false
			})

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			engineErrChan := make(chan error, 1)
			go func() {
				fmt.Println("slackbridge starting, press Ctrl+C to stop")
				engineErrChan <- engine.Run()
			}()

			select {
			case sig := <-sigChan:
				logger.WithField("signal", sig.String()).Info("shutdown-signal-received")
				if err := engine.Stop(); err != nil {
					logger.WithField("error", err).Error("shutdown-failed")
				}
			case err := <-engineErrChan:
				if err != nil {
					logger.WithField("error", err).Error("engine-exited-with-error")
					return err
				}
			}

			logger.Info("slackbridge-stopped")
			return nil
		},
	}
)

func init() {
	startCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
}
