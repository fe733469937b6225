package bls

import (
	"encoding/json"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
)

// Signature lives in G1 and is immutable once created.
type Signature struct {
	p curve.G1Point
}

// SignatureFromBytes decodes a compressed or uncompressed signature with
// full validation.
func SignatureFromBytes(b []byte) (*Signature, error) {
	p, err := curve.DecodeG1(b)
	if err != nil {
		return nil, err
	}
	return &Signature{p: p}, nil
}

func SignatureFromPoint(p curve.G1Point) *Signature {
	return &Signature{p: p}
}

func (s *Signature) Point() curve.G1Point { return s.p }
func (s *Signature) Bytes() []byte        { return s.p.Compress() }
func (s *Signature) String() string       { return s.p.String() }

func (s *Signature) Equal(o *Signature) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.p.Equal(o.p)
}

func (s Signature) MarshalText() ([]byte, error) {
	return s.p.MarshalText()
}

func (s *Signature) UnmarshalText(text []byte) error {
	return s.p.UnmarshalText(text)
}

// AggregatePublicKeys sums keys. The result does not depend on order.
func AggregatePublicKeys(keys []*PublicKey) (*PublicKey, error) {
	if len(keys) == 0 {
		return nil, ErrEmptySet
	}
	points := make([]curve.G2Point, len(keys))
	for i, k := range keys {
		if k == nil {
			return nil, ErrNilKey
		}
		points[i] = k.p
	}
	sum, err := curve.SumG2(points)
	if err != nil {
		return nil, err
	}
	return &PublicKey{p: sum}, nil
}

// AggregateSignature is a summed signature together with the operators whose
// partial signatures went into it, kept in ascending id order.
type AggregateSignature struct {
	sig     *Signature
	signers []OperatorID
}

// Contribution attributes a partial signature to an operator.
type Contribution struct {
	Operator  OperatorID
	Signature *Signature
}

// AggregateSignatures sums anonymous signatures. The result does not depend
// on order.
func AggregateSignatures(sigs []*Signature) (*AggregateSignature, error) {
	if len(sigs) == 0 {
		return nil, ErrEmptySet
	}
	points := make([]curve.G1Point, len(sigs))
	for i, s := range sigs {
		if s == nil {
			return nil, ErrNilKey
		}
		points[i] = s.p
	}
	sum, err := curve.SumG1(points)
	if err != nil {
		return nil, err
	}
	return &AggregateSignature{sig: &Signature{p: sum}}, nil
}

// AggregateContributions sums attributed signatures and records the signer
// set. An operator may appear only once.
func AggregateContributions(cs []Contribution) (*AggregateSignature, error) {
	if len(cs) == 0 {
		return nil, ErrEmptySet
	}
	sigs := make([]*Signature, len(cs))
	signers := make([]OperatorID, len(cs))
	seen := make(map[OperatorID]struct{}, len(cs))
	for i, c := range cs {
		if _, dup := seen[c.Operator]; dup {
			return nil, ErrDuplicateOperator
		}
		seen[c.Operator] = struct{}{}
		sigs[i] = c.Signature
		signers[i] = c.Operator
	}
	agg, err := AggregateSignatures(sigs)
	if err != nil {
		return nil, err
	}
	sortOperatorIDs(signers)
	agg.signers = signers
	return agg, nil
}

func (a *AggregateSignature) Signature() *Signature { return a.sig }

// Signers returns a copy of the contributing operator ids.
func (a *AggregateSignature) Signers() []OperatorID {
	out := make([]OperatorID, len(a.signers))
	copy(out, a.signers)
	return out
}

func (a *AggregateSignature) Equal(o *AggregateSignature) bool {
	if a == nil || o == nil {
		return a == o
	}
	if !a.sig.Equal(o.sig) || len(a.signers) != len(o.signers) {
		return false
	}
	for i := range a.signers {
		if a.signers[i] != o.signers[i] {
			return false
		}
	}
	return true
}

// SignerBitmap marks, for each position of order, whether that operator
// contributed.
func (a *AggregateSignature) SignerBitmap(order []OperatorID) (*bitset.BitSet, error) {
	index := make(map[OperatorID]uint, len(order))
	for i, id := range order {
		index[id] = uint(i)
	}
	bits := bitset.New(uint(len(order)))
	for _, id := range a.signers {
		i, ok := index[id]
		if !ok {
			return nil, ErrUnknownSigner
		}
		bits.Set(i)
	}
	return bits, nil
}

// NonSigners returns the members of order that did not contribute.
func (a *AggregateSignature) NonSigners(order []OperatorID) []OperatorID {
	signed := make(map[OperatorID]struct{}, len(a.signers))
	for _, id := range a.signers {
		signed[id] = struct{}{}
	}
	var out []OperatorID
	for _, id := range order {
		if _, ok := signed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

type aggregateJSON struct {
	Signature *Signature   `json:"signature"`
	Signers   []OperatorID `json:"signers"`
}

func (a *AggregateSignature) MarshalJSON() ([]byte, error) {
	return json.Marshal(aggregateJSON{Signature: a.sig, Signers: a.signers})
}

func (a *AggregateSignature) UnmarshalJSON(data []byte) error {
	var raw aggregateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Signature == nil {
		return ErrInvalidEncoding
	}
	sortOperatorIDs(raw.Signers)
	a.sig = raw.Signature
	a.signers = raw.Signers
	return nil
}

func sortOperatorIDs(ids []OperatorID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Less(ids[j])
	})
}
