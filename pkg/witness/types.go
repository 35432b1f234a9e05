package witness

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	backendwitness "github.com/consensys/gnark/backend/witness"

	"github.com/yourorg/satcity/circuits"
	"github.com/yourorg/satcity/pkg/backend"
)

type PublicInputs struct {
	InDigest  fr.Element `json:"inDigest"`
	OutDigest fr.Element `json:"outDigest"`
}

type Bundle struct {
	Variant   backend.Variant
	Full      backendwitness.Witness
	Public    backendwitness.Witness
	Inputs    PublicInputs
	Blueprint *circuits.TransitionCircuit
}

// fixture is the on-disk form of one transition run.
type fixture struct {
	Variant string   `json:"variant"`
	In      []string `json:"in"`
	Out     []string `json:"out"`
}
