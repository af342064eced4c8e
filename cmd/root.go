// Package cmd assembles the farmbridge-notify command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/farmbridge/notify/cmd/list"
	"github.com/farmbridge/notify/cmd/open"
	"github.com/farmbridge/notify/cmd/resolve"
	"github.com/farmbridge/notify/cmd/watch"
	"github.com/farmbridge/notify/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "farmbridge-notify",
		Short: "FarmBridge notification client",
		Long:  "Client for the FarmBridge marketplace notification subsystem: live alert delivery, read-state synchronization, and payment reconciliation.",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		// flags failing to bind means the binary is unusable
		panic(err)
	}

	rootCmd.AddCommand(
		watch.Command(settings),
		list.Command(settings),
		open.Command(settings),
		resolve.Command(settings),
	)

	return rootCmd
}

// setupFlags defines the flags shared by all subcommands.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Main.Debug, "debug", "d", viper.GetBool("main.debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Backend.BaseURL, "baseurl", viper.GetString("backend.baseurl"), "Backend base URL")
	rootCmd.PersistentFlags().StringVar(&settings.Backend.Token, "token", viper.GetString("backend.token"), "Bearer credential for the backend session")
	rootCmd.PersistentFlags().StringVar(&settings.MQTT.Broker, "broker", viper.GetString("mqtt.broker"), "Push channel broker URL")
	rootCmd.PersistentFlags().StringVar(&settings.User.ID, "userid", viper.GetString("user.id"), "User identifier for the registration handshake")
	rootCmd.PersistentFlags().StringVar(&settings.User.Type, "usertype", viper.GetString("user.type"), "User type (farmer/buyer)")
	rootCmd.PersistentFlags().BoolVar(&settings.User.Premium, "premium", viper.GetBool("user.premium"), "Premium entitlement flag")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
