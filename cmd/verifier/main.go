package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yourorg/satcity/internal/config"
	"github.com/yourorg/satcity/internal/logging"
	"github.com/yourorg/satcity/pkg/backend/groth16"
	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/rpc"
	"github.com/yourorg/satcity/pkg/types"
	"github.com/yourorg/satcity/pkg/verifier"
)

// env is what every subcommand runs against: an open store and the gate
// bound to the contract's namespace.
type env struct {
	cfg    config.Config
	logger zerolog.Logger
	store  kv.Store
	gate   *verifier.Gate
}

func (e *env) open(contract string) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.Stderr(e.cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SilenceGnark(logger)
	e.logger = logger

	store, err := kv.NewLevelDBBuilder(logger, filepath.Join(e.cfg.DataDir, "contracts")).Build()
	if err != nil {
		return err
	}
	e.store = store

	keys := groth16.NewKeyring(e.cfg.KeyDir, logger)
	e.gate = verifier.New(store, kv.ContractNamespace([]byte(contract)), groth16.New(keys, e.cfg.Variant, logger),
		verifier.WithLogger(logger),
	)
	return nil
}

func (e *env) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	e := &env{cfg: cfg}
	var contract string

	rootCmd := &cobra.Command{
		Use:   "verifier",
		Short: "Operate the Sat City proof gate",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return e.open(contract)
		},
		PersistentPostRun: func(*cobra.Command, []string) { e.close() },
	}
	config.BindFlags(rootCmd.PersistentFlags(), &e.cfg)
	rootCmd.PersistentFlags().StringVar(&contract, "contract", "satcity", "deployment id of the gate")

	rootCmd.AddCommand(deployCmd(e), initializeCmd(e), verifyCmd(e), rootStateCmd(e))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		e.close()
		log.Fatal(err)
	}
}

func deployCmd(e *env) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Record the gate owner",
		RunE: func(*cobra.Command, []string) error {
			id, err := types.ParseAssetID(owner)
			if err != nil {
				return err
			}
			if err := e.gate.Deploy(id); err != nil {
				return err
			}
			fmt.Printf("deployed, owner %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (block:tx)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func initializeCmd(e *env) *cobra.Command {
	var caller, bridge string

	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Bind the gate to its bridge",
		RunE: func(*cobra.Command, []string) error {
			from, err := types.ParseAssetID(caller)
			if err != nil {
				return err
			}
			to, err := types.ParseAssetID(bridge)
			if err != nil {
				return err
			}
			if err := e.gate.Initialize(verifier.CallContext{Caller: from}, to); err != nil {
				return err
			}
			fmt.Printf("initialized, bridge %s\n", to)
			return nil
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "calling id (block:tx)")
	cmd.Flags().StringVar(&bridge, "bridge", "", "bridge id (block:tx)")
	_ = cmd.MarkFlagRequired("caller")
	_ = cmd.MarkFlagRequired("bridge")
	return cmd
}

func verifyCmd(e *env) *cobra.Command {
	var caller, txFile, txid string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the payload carried by a transaction and move the root",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := types.ParseAssetID(caller)
			if err != nil {
				return err
			}

			var raw []byte
			switch {
			case txFile != "":
				b, err := os.ReadFile(txFile)
				if err != nil {
					return err
				}
				s := strings.TrimSpace(string(b))
				if !strings.HasPrefix(s, "0x") {
					s = "0x" + s
				}
				if raw, err = hexutil.Decode(s); err != nil {
					return fmt.Errorf("%s: %w", txFile, err)
				}
			case txid != "":
				client, err := rpc.Dial(cmd.Context(), rpc.Config{
					BitcoinURL:   e.cfg.BitcoinRPCURL,
					MetashrewURL: e.cfg.MetashrewRPCURL,
					Timeout:      e.cfg.RPCTimeout,
				})
				if err != nil {
					return err
				}
				defer client.Close()
				if raw, err = client.GetRawTransaction(cmd.Context(), txid); err != nil {
					return err
				}
			default:
				return fmt.Errorf("one of --tx-file or --txid is required")
			}

			if err := e.gate.VerifyAndUpdate(verifier.CallContext{Caller: from, Transaction: raw}); err != nil {
				return fmt.Errorf("%s: %w", verifier.Classify(err), err)
			}
			root, err := e.gate.GetStateRoot()
			if err != nil {
				return err
			}
			fmt.Printf("proof verified, root %s\n", hexutil.Encode(root))
			return nil
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "calling id (block:tx)")
	cmd.Flags().StringVar(&txFile, "tx-file", "", "hex encoded raw transaction")
	cmd.Flags().StringVar(&txid, "txid", "", "fetch the transaction from the bitcoin node")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

func rootStateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the stored state root",
		RunE: func(*cobra.Command, []string) error {
			root, err := e.gate.GetStateRoot()
			if err != nil {
				return err
			}
			if len(root) == 0 {
				fmt.Println("no state root")
				return nil
			}
			fmt.Printf("root %s", hexutil.Encode(root))
			if v, ok, err := e.gate.LastVariant(); err == nil && ok {
				fmt.Printf(" (%s)", v)
			}
			if b, ok, err := e.gate.BridgeID(); err == nil && ok {
				fmt.Printf(", bridge %s", b)
			}
			fmt.Println()
			return nil
		},
	}
}
