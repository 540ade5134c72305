// Package main provides the wallet bridge daemon and its operator CLI.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahwlsqja/walletbridge/client"
	"github.com/ahwlsqja/walletbridge/engine"
	"github.com/ahwlsqja/walletbridge/keystore"
	"github.com/ahwlsqja/walletbridge/metrics"
	"github.com/ahwlsqja/walletbridge/transport"
	"github.com/ahwlsqja/walletbridge/wallet"
)

const readyTimeout = 15 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "walletd",
		Short:        "Asynchronous bridge over a poll-based wallet engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, configFile)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default walletd.yaml)")
	cmd.PersistentFlags().String("engine-addr", "localhost:26657", "Engine gRPC address")
	cmd.PersistentFlags().String("keystore-dir", "keystore", "Keystore directory")
	cmd.PersistentFlags().String("wallet-config", "", "Opaque wallet engine configuration")
	cmd.PersistentFlags().Duration("poll-interval", time.Second, "Receive loop poll interval")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(keyCmd())
	cmd.AddCommand(accountCmd())
	cmd.AddCommand(sendCmd())
	cmd.AddCommand(transactionsCmd())
	cmd.AddCommand(statusCmd())

	return cmd
}

// loadConfig layers flags over the config file and environment. Precedence:
// flags, then WALLETD_* environment variables, then the file.
func loadConfig(cmd *cobra.Command, configFile string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("walletd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("WALLETD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// ================================================================================
//                                     serve
// ================================================================================

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local wallet engine behind the gRPC engine service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().String("metrics-addr", ":26660", "Prometheus metrics address")
	return cmd
}

func runServe() error {
	store, err := keystore.NewStore(viper.GetString("keystore-dir"))
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}
	log.Printf("Keystore at %s", store.Dir())

	metricsAddr := viper.GetString("metrics-addr")
	metricsServer := metrics.NewServer(metricsAddr)
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	log.Printf("Metrics server listening on %s", metricsAddr)

	eng := engine.NewLocalEngine()
	server := transport.NewEngineServer(viper.GetString("engine-addr"), eng)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start engine server: %w", err)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	server.Stop()
	metricsServer.Stop()
	log.Println("Shutdown complete")
	return nil
}

// ================================================================================
//                                   bridge setup
// ================================================================================

// withClient connects to the remote engine, waits for the bridge to become
// ready and runs fn against it.
func withClient(fn func(c *client.Client) error) error {
	remote, err := transport.NewRemoteEngine(viper.GetString("engine-addr"))
	if err != nil {
		return err
	}
	defer remote.Stop()

	if err := remote.Start(); err != nil {
		return err
	}

	config := client.DefaultConfig(viper.GetString("keystore-dir"))
	config.WalletConfig = viper.GetString("wallet-config")
	config.PollInterval = viper.GetDuration("poll-interval")

	c, err := client.New(remote, config, client.WithMetrics(metrics.NewMetrics("walletbridge")))
	if err != nil {
		return err
	}
	defer c.Close()

	if err := awaitReady(c); err != nil {
		return err
	}
	return fn(c)
}

func awaitReady(c *client.Client) error {
	statusCh := c.SubscribeStatus()
	deadline := time.After(readyTimeout)
	for {
		select {
		case st := <-statusCh:
			switch st.State {
			case client.StatusReady:
				return nil
			case client.StatusError:
				return fmt.Errorf("engine initialization failed: %s", st.Err)
			}
		case <-deadline:
			return fmt.Errorf("engine not ready after %v", readyTimeout)
		}
	}
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// ================================================================================
//                                      key
// ================================================================================

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage engine keys",
	}
	cmd.AddCommand(keyCreateCmd())
	cmd.AddCommand(keyDeleteCmd())
	cmd.AddCommand(keyExportCmd())
	cmd.AddCommand(keyImportCmd())
	cmd.AddCommand(keyListCmd())
	return cmd
}

func keyCreateCmd() *cobra.Command {
	var localPassword, mnemonicPassword string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				key, err := c.CreateKey(localPassword, mnemonicPassword).Await(ctx)
				if err != nil {
					return err
				}

				store, err := keystore.NewStore(viper.GetString("keystore-dir"))
				if err != nil {
					return err
				}
				rec := &keystore.Record{PublicKey: key.PublicKey, CreatedAt: time.Now()}
				if addr, err := c.AccountAddress(key.PublicKey).Await(ctx); err == nil {
					rec.Address = addr.Value
				}
				if err := store.SaveRecord(rec); err != nil {
					return err
				}

				fmt.Printf("Public key: %s\n", key.PublicKey)
				if rec.Address != "" {
					fmt.Printf("Address:    %s\n", rec.Address)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&localPassword, "local-password", "", "Local key password")
	cmd.Flags().StringVar(&mnemonicPassword, "mnemonic-password", "", "Mnemonic password")
	return cmd
}

func keyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <public-key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				if _, err := c.DeleteKey(args[0]).Await(ctx); err != nil {
					return err
				}

				store, err := keystore.NewStore(viper.GetString("keystore-dir"))
				if err != nil {
					return err
				}
				if err := store.DeleteRecord(args[0]); err != nil {
					return err
				}

				fmt.Println("Key deleted")
				return nil
			})
		},
	}
	return cmd
}

func keyExportCmd() *cobra.Command {
	var localPassword string

	cmd := &cobra.Command{
		Use:   "export <public-key>",
		Short: "Export a key as its mnemonic word list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				exported, err := c.ExportKey(args[0], localPassword).Await(ctx)
				if err != nil {
					return err
				}
				fmt.Println(strings.Join(exported.WordList, " "))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&localPassword, "local-password", "", "Local key password")
	return cmd
}

func keyImportCmd() *cobra.Command {
	var localPassword, mnemonicPassword string

	cmd := &cobra.Command{
		Use:   "import <word>...",
		Short: "Restore a key from a mnemonic word list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				key, err := c.ImportKey(localPassword, mnemonicPassword, args).Await(ctx)
				if err != nil {
					return err
				}

				store, err := keystore.NewStore(viper.GetString("keystore-dir"))
				if err != nil {
					return err
				}
				if err := store.SaveRecord(&keystore.Record{PublicKey: key.PublicKey, CreatedAt: time.Now()}); err != nil {
					return err
				}

				fmt.Printf("Public key: %s\n", key.PublicKey)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&localPassword, "local-password", "", "Local key password")
	cmd.Flags().StringVar(&mnemonicPassword, "mnemonic-password", "", "Mnemonic password")
	return cmd
}

func keyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally recorded keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keystore.NewStore(viper.GetString("keystore-dir"))
			if err != nil {
				return err
			}
			records, err := store.ListRecords()
			if err != nil {
				return err
			}
			for _, rec := range records {
				if rec.Address != "" {
					fmt.Printf("%s  %s\n", rec.PublicKey, rec.Address)
				} else {
					fmt.Println(rec.PublicKey)
				}
			}
			return nil
		},
	}
}

// ================================================================================
//                                    account
// ================================================================================

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect accounts",
	}
	cmd.AddCommand(accountAddressCmd())
	cmd.AddCommand(accountStateCmd())
	return cmd
}

func accountAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address <public-key>",
		Short: "Derive the wallet address for a public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				addr, err := c.AccountAddress(args[0]).Await(ctx)
				if err != nil {
					return err
				}
				fmt.Println(addr.Value)
				return nil
			})
		},
	}
}

func accountStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <address>",
		Short: "Fetch the state of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				state, err := c.AccountState(args[0]).Await(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Balance:   %d\n", state.Balance)
				fmt.Printf("Last tx:   lt=%d hash=%s\n", state.LastTransactionID.LT, state.LastTransactionID.Hash)
				fmt.Printf("Synced at: %s\n", time.Unix(state.SyncUtime, 0).Format(time.RFC3339))
				return nil
			})
		},
	}
}

// ================================================================================
//                                 send / transactions
// ================================================================================

func sendCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "send <source> <destination> <amount>",
		Short: "Transfer grams between accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount int64
			if _, err := fmt.Sscanf(args[2], "%d", &amount); err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				result, err := c.SendGrams(args[0], args[1], amount, message).Await(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Body hash: %s\n", result.BodyHash)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "Transfer message")
	return cmd
}

func transactionsCmd() *cobra.Command {
	var fromLT uint64
	var fromHash string

	cmd := &cobra.Command{
		Use:   "transactions <address>",
		Short: "List transactions for an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var from wallet.TransactionID
			if fromLT != 0 {
				hash, err := hex.DecodeString(fromHash)
				if err != nil {
					return fmt.Errorf("invalid from-hash: %w", err)
				}
				from = wallet.TransactionID{LT: fromLT, Hash: hash}
			}
			return withClient(func(c *client.Client) error {
				ctx, cancel := opCtx()
				defer cancel()

				list, err := c.Transactions(args[0], from).Await(ctx)
				if err != nil {
					return err
				}
				for _, tx := range list.Transactions {
					fmt.Printf("lt=%d  %s -> %s  value=%d fee=%d  %s\n",
						tx.ID.LT, tx.Source, tx.Destination, tx.Value, tx.Fee, tx.Message)
				}
				if !list.PreviousID.IsZero() {
					fmt.Printf("next page: --from-lt %d --from-hash %s\n", list.PreviousID.LT, list.PreviousID.Hash)
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&fromLT, "from-lt", 0, "Logical time to page from")
	cmd.Flags().StringVar(&fromHash, "from-hash", "", "Transaction hash to page from (hex)")
	return cmd
}

// ================================================================================
//                                     status
// ================================================================================

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report engine initialization status",
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, err := transport.NewRemoteEngine(viper.GetString("engine-addr"))
			if err != nil {
				return err
			}
			defer remote.Stop()
			if err := remote.Start(); err != nil {
				return err
			}

			config := client.DefaultConfig(viper.GetString("keystore-dir"))
			config.WalletConfig = viper.GetString("wallet-config")
			config.PollInterval = viper.GetDuration("poll-interval")

			c, err := client.New(remote, config)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := awaitReady(c); err != nil {
				fmt.Println(err)
				return nil
			}
			fmt.Println("ready")
			return nil
		},
	}
}
