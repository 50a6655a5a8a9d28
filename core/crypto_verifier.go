package core

import "crypto/ed25519"

// CryptoVerifier is the signature-check collaborator the engine consumes
// at the transaction boundary. Key derivation, hashing schemes, and
// address encoding stay out of the core entirely, the way wallet.go keeps
// them at the wallet layer rather than in ledger/consensus code.
type CryptoVerifier interface {
	// Verify reports whether sig is a valid signature over message under
	// publicKey. A false return (not an error) means "signature invalid";
	// an error means the inputs were malformed in a way verification
	// cannot even attempt (wrong key/signature length).
	Verify(publicKey, message, sig []byte) (bool, error)
}

// Ed25519Verifier is the default CryptoVerifier, matching the HD wallet's
// choice of ed25519 as the only supported signature scheme.
type Ed25519Verifier struct{}

func NewEd25519Verifier() Ed25519Verifier { return Ed25519Verifier{} }

func (Ed25519Verifier) Verify(publicKey, message, sig []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, newRejection(KindInputDecodeError, "public key length %d, want %d", len(publicKey), ed25519.PublicKeySize)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, newRejection(KindInputDecodeError, "signature length %d, want %d", len(sig), ed25519.SignatureSize)
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, sig), nil
}

// SignerProof is one (publicKey, signature) pair validated over a
// transaction's intent hash, carried in Executable.Context.Signers as
// a virtual badge proof source synthesized from passed-in signatures.
type SignerProof struct {
	PublicKey []byte
	Signature []byte
}

// VerifySigners checks every signer's signature over message, returning
// the public keys that verified. Any individually malformed signature
// rejects the whole transaction rather than silently dropping the bad one.
func VerifySigners(v CryptoVerifier, message []byte, signers []SignerProof) ([][]byte, error) {
	verified := make([][]byte, 0, len(signers))
	for _, s := range signers {
		ok, err := v.Verify(s.PublicKey, message, s.Signature)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newRejection(KindInputDecodeError, "signature verification failed for public key %x", s.PublicKey)
		}
		verified = append(verified, s.PublicKey)
	}
	return verified, nil
}
