package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/holiman/uint256"

	"github.com/yourorg/satcity/pkg/state"
	"github.com/yourorg/satcity/pkg/types"
)

type genesisFile struct {
	Players []struct {
		ID    types.AssetID `json:"id"`
		Chips string        `json:"chips"`
	} `json:"players"`
	Nfts []struct {
		ID    string        `json:"id"`
		Owner types.AssetID `json:"owner"`
	} `json:"nfts"`
}

// loadGenesis builds and commits the state described by a genesis file.
func loadGenesis(path string) (*state.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g genesisFile
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}

	st := state.New()
	for _, p := range g.Players {
		chips, err := uint256.FromDecimal(p.Chips)
		if err != nil {
			return nil, fmt.Errorf("player %s chips: %w", p.ID, err)
		}
		st.UpsertPlayer(types.Player{ID: p.ID, Chips: *chips})
	}
	for _, n := range g.Nfts {
		id, err := uint256.FromDecimal(n.ID)
		if err != nil {
			return nil, fmt.Errorf("nft id %q: %w", n.ID, err)
		}
		st.UpsertNft(types.OrbitalNft{ID: *id, Owner: n.Owner})
	}
	st.Commit()
	return st, nil
}

func loadTransactions(path string) ([]types.Transaction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var txs []types.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("transactions %s: %w", path, err)
	}
	return txs, nil
}
