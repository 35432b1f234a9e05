package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yourorg/satcity/internal/config"
	"github.com/yourorg/satcity/internal/logging"
	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/backend/groth16"
	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/mempool"
	"github.com/yourorg/satcity/pkg/rpc"
	"github.com/yourorg/satcity/pkg/sequencer"
)

const journalNamespace kv.Namespace = "sequencer"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var logger zerolog.Logger

	rootCmd := &cobra.Command{
		Use:   "sequencer",
		Short: "Batch Sat City transfers into proved blocks",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err = logging.Stderr(cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.SilenceGnark(logger)
			return nil
		},
	}
	config.BindFlags(rootCmd.PersistentFlags(), &cfg)

	rootCmd.AddCommand(
		runCmd(&cfg, &logger),
		statusCmd(&cfg),
		broadcastCmd(&cfg),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func runCmd(cfg *config.Config, logger *zerolog.Logger) *cobra.Command {
	var genesisPath, txsPath, outDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Prove every queued transfer on top of a genesis state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			genesis, err := loadGenesis(genesisPath)
			if err != nil {
				return err
			}
			txs, err := loadTransactions(txsPath)
			if err != nil {
				return err
			}

			// -----------------------------------------------------------------
			// Metrics
			// -----------------------------------------------------------------
			reg := prometheus.NewRegistry()
			queueMetrics, err := mempool.GetPrometheusMetrics(cfg.MetricsNamespace)
			if err != nil {
				return err
			}
			seqMetrics, err := sequencer.GetPrometheusMetrics(cfg.MetricsNamespace)
			if err != nil {
				return err
			}
			if err := queueMetrics.Register(reg); err != nil {
				return err
			}
			if err := seqMetrics.Register(reg); err != nil {
				return err
			}
			if cfg.MetricsAddr != "" {
				srv := &http.Server{
					Addr:              cfg.MetricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Msg("metrics server")
					}
				}()
				defer srv.Close()
			}

			// -----------------------------------------------------------------
			// Journal, backend, sequencer
			// -----------------------------------------------------------------
			store, err := kv.NewLevelDBBuilder(*logger, filepath.Join(cfg.DataDir, "sequencer")).Build()
			if err != nil {
				return err
			}
			defer store.Close()

			keys := groth16.NewKeyring(cfg.KeyDir, *logger)
			prover := sequencer.NewProver(groth16.New(keys, cfg.Variant, *logger), *logger, seqMetrics)

			queue := mempool.New(mempool.WithMetrics(queueMetrics))
			for _, tx := range txs {
				queue.AddTransaction(tx)
			}

			seq, err := sequencer.New(queue, prover, genesis, store, journalNamespace,
				sequencer.WithBatchSize(cfg.BatchSize),
				sequencer.WithLogger(*logger),
				sequencer.WithMetrics(seqMetrics),
			)
			if err != nil {
				return err
			}

			// -----------------------------------------------------------------
			// Blocks
			// -----------------------------------------------------------------
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for {
				blk, err := seq.ProduceBlock(ctx)
				var rejected *backend.TransitionRejectedError
				switch {
				case errors.Is(err, sequencer.ErrEmptyBatch):
					fmt.Printf("height %d, root %s\n", seq.Height(), rootString(seq))
					return nil
				case errors.As(err, &rejected):
					continue
				case err != nil:
					return err
				}

				path := filepath.Join(outDir, fmt.Sprintf("block_%d.payload", blk.Height))
				if err := os.WriteFile(path, []byte(hexutil.Encode(blk.Payload)), 0o644); err != nil {
					return err
				}
				fmt.Printf("block %d: %d txs, root %s -> %s\n", blk.Height, len(blk.Transactions), blk.Root, path)
			}
		},
	}

	cmd.Flags().StringVar(&genesisPath, "genesis", "", "genesis state (json)")
	cmd.Flags().StringVar(&txsPath, "txs", "", "transactions to queue (json array)")
	cmd.Flags().StringVar(&outDir, "out", "./blocks", "directory for witness payloads")
	_ = cmd.MarkFlagRequired("genesis")
	_ = cmd.MarkFlagRequired("txs")
	return cmd
}

func rootString(seq *sequencer.Sequencer) string {
	root, ok := seq.State().Root()
	if !ok {
		return "<none>"
	}
	return root.String()
}

func statusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bitcoin and metashrew heights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := dial(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			btc, err := client.GetBlockCount(cmd.Context())
			if err != nil {
				return err
			}
			ms, err := client.MetashrewHeight(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("bitcoin %d, metashrew %d\n", btc, ms)
			return nil
		},
	}
}

func broadcastCmd(cfg *config.Config) *cobra.Command {
	var txPath string

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send a signed transaction carrying a witness payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(txPath)
			if err != nil {
				return err
			}
			tx, err := hexutil.Decode(ensure0x(strings.TrimSpace(string(raw))))
			if err != nil {
				return fmt.Errorf("%s: %w", txPath, err)
			}

			client, err := dial(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			txid, err := client.SendRawTransaction(cmd.Context(), tx)
			if err != nil {
				return err
			}
			fmt.Println(txid)
			return nil
		},
	}

	cmd.Flags().StringVar(&txPath, "tx", "", "hex encoded raw transaction")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}

func dial(ctx context.Context, cfg *config.Config) (*rpc.Client, error) {
	return rpc.Dial(ctx, rpc.Config{
		BitcoinURL:   cfg.BitcoinRPCURL,
		MetashrewURL: cfg.MetashrewRPCURL,
		Timeout:      cfg.RPCTimeout,
	})
}

func ensure0x(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return "0x" + s
}
