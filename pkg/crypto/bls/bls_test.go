package bls

import (
	"bytes"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
)

func newKeyPairs(t *testing.T, n int) []*KeyPair {
	t.Helper()
	kps := make([]*KeyPair, n)
	for i := range kps {
		kp, err := GenerateKeyPair(nil)
		require.NoError(t, err)
		kps[i] = kp
	}
	return kps
}

func signAll(t *testing.T, scheme *Scheme, kps []*KeyPair, msg []byte) []*Signature {
	t.Helper()
	sigs := make([]*Signature, len(kps))
	for i, kp := range kps {
		sig, err := scheme.Sign(kp.PrivateKey(), msg)
		require.NoError(t, err)
		sigs[i] = sig
	}
	return sigs
}

func publicKeys(kps []*KeyPair) []*PublicKey {
	pks := make([]*PublicKey, len(kps))
	for i, kp := range kps {
		pks[i] = kp.PublicKey()
	}
	return pks
}

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	assert.True(t, kp.PublicKey().Point().IsInSubgroup())
	assert.False(t, kp.PublicKey().Point().IsInfinity())

	_, err = GenerateKeyPair(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrRandomness)
}

func TestPrivateKey_RoundTripAndZero(t *testing.T) {
	kp, err := GenerateKeyPair(nil)
	require.NoError(t, err)

	sk, err := PrivateKeyFromBytes(kp.PrivateKey().Bytes())
	require.NoError(t, err)
	assert.True(t, sk.PublicKey().Equal(kp.PublicKey()))

	_, err = PrivateKeyFromBytes(make([]byte, curve.ScalarSize))
	assert.ErrorIs(t, err, ErrZeroPrivateKey)

	kp.Destroy()
	_, err = kp.Sign([]byte("after destroy"))
	assert.ErrorIs(t, err, ErrZeroPrivateKey)
}

func TestAggregation_Commutative(t *testing.T) {
	msg := []byte("block 1024 state root")
	kps := newKeyPairs(t, 5)
	sigs := signAll(t, Default, kps, msg)

	reference, err := AggregateSignatures(sigs)
	require.NoError(t, err)
	referencePk, err := AggregatePublicKeys(publicKeys(kps))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		perm := rng.Perm(len(sigs))
		shuffledSigs := make([]*Signature, len(sigs))
		shuffledPks := make([]*PublicKey, len(kps))
		for j, k := range perm {
			shuffledSigs[j] = sigs[k]
			shuffledPks[j] = kps[k].PublicKey()
		}
		agg, err := AggregateSignatures(shuffledSigs)
		require.NoError(t, err)
		aggPk, err := AggregatePublicKeys(shuffledPks)
		require.NoError(t, err)

		assert.True(t, reference.Equal(agg))
		assert.True(t, referencePk.Equal(aggPk))
	}
}

func TestVerifyAggregate_Correctness(t *testing.T) {
	for _, scheme := range []*Scheme{Default, NewScheme(curve.HashKeccak)} {
		t.Run(scheme.HashMode().String(), func(t *testing.T) {
			msg := []byte("task 7: price=1834.22")
			kps := newKeyPairs(t, 4)

			agg, err := AggregateSignatures(signAll(t, scheme, kps, msg))
			require.NoError(t, err)
			aggPk, err := AggregatePublicKeys(publicKeys(kps))
			require.NoError(t, err)

			assert.True(t, scheme.VerifyAggregate(agg, aggPk, msg))

			// A subset of keys does not verify the full aggregate.
			partialPk, err := AggregatePublicKeys(publicKeys(kps[:3]))
			require.NoError(t, err)
			assert.False(t, scheme.VerifyAggregate(agg, partialPk, msg))
		})
	}
}

func TestVerifyAggregate_RejectsTampering(t *testing.T) {
	msg := []byte("task 7: price=1834.22")
	kps := newKeyPairs(t, 3)
	agg, err := AggregateSignatures(signAll(t, Default, kps, msg))
	require.NoError(t, err)
	aggPk, err := AggregatePublicKeys(publicKeys(kps))
	require.NoError(t, err)

	for i := 0; i < len(msg); i++ {
		for bit := 0; bit < 8; bit += 3 {
			tampered := append([]byte(nil), msg...)
			tampered[i] ^= 1 << bit
			assert.False(t, VerifyAggregate(agg, aggPk, tampered), "byte %d bit %d", i, bit)
		}
	}
}

func TestVerify_DegenerateInputs(t *testing.T) {
	msg := []byte("m")
	kp, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	assert.True(t, Verify(sig, kp.PublicKey(), msg))
	assert.False(t, Verify(nil, kp.PublicKey(), msg))
	assert.False(t, Verify(sig, nil, msg))
	assert.False(t, Verify(SignatureFromPoint(curve.G1Point{}), PublicKeyFromPoint(curve.G2Point{}), msg))
	assert.False(t, VerifyAggregate(nil, kp.PublicKey(), msg))
}

func TestAggregate_EmptySet(t *testing.T) {
	_, err := AggregateSignatures(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
	_, err = AggregatePublicKeys([]*PublicKey{})
	assert.ErrorIs(t, err, ErrEmptySet)
	_, err = AggregateContributions(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
}

func TestVerifyEncoded(t *testing.T) {
	msg := []byte("encoded")
	kp, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	ok, err := VerifyEncoded(sig.Bytes(), kp.PublicKey().Bytes(), msg)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyEncoded(sig.Bytes(), kp.PublicKey().Bytes(), []byte("other"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyEncoded(sig.Bytes()[:10], kp.PublicKey().Bytes(), msg)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestProofOfPossession(t *testing.T) {
	kps := newKeyPairs(t, 2)
	pop, err := kps[0].ProofOfPossession()
	require.NoError(t, err)

	assert.True(t, VerifyProofOfPossession(kps[0].PublicKey(), pop))
	assert.False(t, VerifyProofOfPossession(kps[1].PublicKey(), pop))
	assert.False(t, VerifyProofOfPossession(nil, pop))

	// A message signature over the key bytes is not a valid proof.
	forged, err := kps[0].Sign(kps[0].PublicKey().Point().Marshal())
	require.NoError(t, err)
	assert.False(t, VerifyProofOfPossession(kps[0].PublicKey(), forged))
}

func TestProofOfPossession_BlocksRogueKey(t *testing.T) {
	victim, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	attacker, err := GenerateKeyPair(nil)
	require.NoError(t, err)

	// rogue = attacker - victim, so rogue + victim = attacker.
	rogue := PublicKeyFromPoint(attacker.PublicKey().Point().Add(victim.PublicKey().Point().Neg()))

	msg := []byte("forged attestation")
	sig, err := attacker.Sign(msg)
	require.NoError(t, err)
	aggPk, err := AggregatePublicKeys([]*PublicKey{victim.PublicKey(), rogue})
	require.NoError(t, err)
	agg, err := AggregateSignatures([]*Signature{sig})
	require.NoError(t, err)
	require.True(t, VerifyAggregate(agg, aggPk, msg), "without the gate the forgery verifies")

	// The attacker cannot produce a proof for the rogue key.
	pop, err := attacker.ProofOfPossession()
	require.NoError(t, err)
	assert.False(t, VerifyProofOfPossession(rogue, pop))
}

func TestSignerBitmap(t *testing.T) {
	kps := newKeyPairs(t, 3)
	msg := []byte("bitmap")
	sigs := signAll(t, Default, kps, msg)
	order := []OperatorID{kps[0].OperatorID(), kps[1].OperatorID(), kps[2].OperatorID()}

	agg, err := AggregateContributions([]Contribution{
		{Operator: order[2], Signature: sigs[2]},
		{Operator: order[0], Signature: sigs[0]},
	})
	require.NoError(t, err)

	bits, err := agg.SignerBitmap(order)
	require.NoError(t, err)
	assert.True(t, bits.Test(0))
	assert.False(t, bits.Test(1))
	assert.True(t, bits.Test(2))
	assert.Equal(t, []OperatorID{order[1]}, agg.NonSigners(order))

	_, err = agg.SignerBitmap(order[:1])
	assert.ErrorIs(t, err, ErrUnknownSigner)

	_, err = AggregateContributions([]Contribution{
		{Operator: order[0], Signature: sigs[0]},
		{Operator: order[0], Signature: sigs[0]},
	})
	assert.ErrorIs(t, err, ErrDuplicateOperator)
}

func TestAggregateSignature_JSON(t *testing.T) {
	kps := newKeyPairs(t, 2)
	sigs := signAll(t, Default, kps, []byte("json"))
	agg, err := AggregateContributions([]Contribution{
		{Operator: kps[0].OperatorID(), Signature: sigs[0]},
		{Operator: kps[1].OperatorID(), Signature: sigs[1]},
	})
	require.NoError(t, err)

	raw, err := agg.MarshalJSON()
	require.NoError(t, err)

	var decoded AggregateSignature
	require.NoError(t, decoded.UnmarshalJSON(raw))
	assert.True(t, agg.Equal(&decoded))
}

func TestOperatorID(t *testing.T) {
	kp, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	id := kp.OperatorID()

	parsed, err := OperatorIDFromHex(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = OperatorIDFromHex("0x1234")
	assert.Error(t, err)
	assert.Len(t, id.Short(), 8)
}

func TestVerifyQuorum(t *testing.T) {
	msg := []byte("quorum message")
	kps := newKeyPairs(t, 3)
	sigs := signAll(t, Default, kps, msg)
	stakes := []int64{40, 35, 30}

	partials := make([]WeightedPartial, len(kps))
	for i, kp := range kps {
		partials[i] = WeightedPartial{
			Operator:  kp.OperatorID(),
			PublicKey: kp.PublicKey(),
			Signature: sigs[i],
			Stake:     big.NewInt(stakes[i]),
		}
	}

	t.Run("first prefix reaching threshold wins", func(t *testing.T) {
		res, err := VerifyQuorum(partials, msg, big.NewInt(70))
		require.NoError(t, err)
		assert.Equal(t, int64(75), res.Stake.Int64())
		assert.ElementsMatch(t, []OperatorID{kps[0].OperatorID(), kps[1].OperatorID()}, res.Aggregate.Signers())

		expectedPk, err := AggregatePublicKeys(publicKeys(kps[:2]))
		require.NoError(t, err)
		assert.True(t, res.AggregateKey.Equal(expectedPk))
		assert.True(t, VerifyAggregate(res.Aggregate, res.AggregateKey, msg))
	})

	t.Run("arrival order decides the subset", func(t *testing.T) {
		reordered := []WeightedPartial{partials[2], partials[0], partials[1]}
		res, err := VerifyQuorum(reordered, msg, big.NewInt(70))
		require.NoError(t, err)
		assert.Equal(t, int64(70), res.Stake.Int64())
		assert.ElementsMatch(t, []OperatorID{kps[2].OperatorID(), kps[0].OperatorID()}, res.Aggregate.Signers())
	})

	t.Run("invalid partial skipped", func(t *testing.T) {
		bad := partials[0]
		bad.Signature = sigs[1]
		res, err := VerifyQuorum([]WeightedPartial{bad, partials[1], partials[2]}, msg, big.NewInt(60))
		require.NoError(t, err)
		assert.Equal(t, []OperatorID{kps[0].OperatorID()}, res.Rejected)
		assert.Equal(t, int64(65), res.Stake.Int64())
	})

	t.Run("insufficient stake", func(t *testing.T) {
		_, err := VerifyQuorum(partials, msg, big.NewInt(106))
		assert.ErrorIs(t, err, ErrInsufficientStake)
	})

	t.Run("invalid threshold", func(t *testing.T) {
		_, err := VerifyQuorum(partials, msg, big.NewInt(0))
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})
}
