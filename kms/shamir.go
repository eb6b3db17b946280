package kms

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/hashicorp/vault/shamir"
)

const bundleShareVersion = 1

var (
	// ErrShareMismatch is returned when escrow shares do not belong to the same bundle
	// or do not reconstruct it.
	ErrShareMismatch = errors.New("escrow shares do not match")

	// ErrRecoveryComplete is returned when a share is submitted after the bundle was recovered.
	ErrRecoveryComplete = errors.New("bundle already recovered")
)

// BundleShare is one Shamir share of a stored root bundle. Every share carries
// the digest of the full bundle so that shares of different deployments are
// never combined.
type BundleShare struct {
	Version   uint8  `cbor:"1,keyasint"`
	Threshold int    `cbor:"2,keyasint"`
	Total     int    `cbor:"3,keyasint"`
	Digest    []byte `cbor:"4,keyasint"`
	Share     []byte `cbor:"5,keyasint"`
}

// SplitBundle splits the serialized root bundle into total CBOR-encoded shares,
// any threshold of which recover it.
func SplitBundle(bundle []byte, total, threshold int) ([][]byte, error) {
	if len(bundle) == 0 {
		return nil, errors.New("cannot split an empty bundle")
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if total < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	parts, err := shamir.Split(bundle, total, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split bundle: %w", err)
	}

	digest := sha256.Sum256(bundle)
	encoded := make([][]byte, 0, len(parts))
	for _, part := range parts {
		data, err := cbor.Marshal(BundleShare{
			Version:   bundleShareVersion,
			Threshold: threshold,
			Total:     total,
			Digest:    digest[:],
			Share:     part,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode share: %w", err)
		}
		encoded = append(encoded, data)
		wipeBytes(part)
	}
	return encoded, nil
}

// DecodeBundleShare parses a CBOR-encoded share.
func DecodeBundleShare(data []byte) (*BundleShare, error) {
	var share BundleShare
	if err := cbor.Unmarshal(data, &share); err != nil {
		return nil, fmt.Errorf("failed to decode share: %w", err)
	}
	if share.Version != bundleShareVersion {
		return nil, fmt.Errorf("unsupported share version %d", share.Version)
	}
	if len(share.Digest) != sha256.Size || len(share.Share) < 2 || share.Threshold < 2 {
		return nil, errors.New("malformed share")
	}
	return &share, nil
}

// BundleRecovery collects escrow shares until the threshold is met and then
// reconstructs the bundle. Shares are wiped once the bundle is recovered.
type BundleRecovery struct {
	mu        sync.Mutex
	digest    []byte
	threshold int
	shares    map[byte][]byte // keyed by share x-coordinate
	bundle    []byte
}

// NewBundleRecovery creates an empty recovery.
func NewBundleRecovery() *BundleRecovery {
	return &BundleRecovery{shares: make(map[byte][]byte)}
}

// SubmitShare adds an encoded share. It returns true once enough shares have
// been received and the bundle was reconstructed and verified.
func (r *BundleRecovery) SubmitShare(data []byte) (bool, error) {
	share, err := DecodeBundleShare(data)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bundle != nil {
		return true, ErrRecoveryComplete
	}

	if r.digest == nil {
		r.digest = share.Digest
		r.threshold = share.Threshold
	} else if !bytes.Equal(r.digest, share.Digest) || r.threshold != share.Threshold {
		return false, fmt.Errorf("%w: share belongs to a different bundle", ErrShareMismatch)
	}

	r.shares[share.Share[len(share.Share)-1]] = share.Share
	return r.tryReconstruct()
}

// tryReconstruct combines the received shares once the threshold is met.
func (r *BundleRecovery) tryReconstruct() (bool, error) {
	if len(r.shares) < r.threshold {
		return false, nil
	}

	parts := make([][]byte, 0, len(r.shares))
	for _, share := range r.shares {
		parts = append(parts, share)
	}

	bundle, err := shamir.Combine(parts)
	if err != nil {
		return false, fmt.Errorf("failed to reconstruct bundle: %w", err)
	}

	digest := sha256.Sum256(bundle)
	if !bytes.Equal(digest[:], r.digest) {
		return false, fmt.Errorf("%w: reconstructed bundle digest differs", ErrShareMismatch)
	}

	r.bundle = bundle
	for i := range r.shares {
		wipeBytes(r.shares[i])
	}
	r.shares = make(map[byte][]byte)
	return true, nil
}

// Bundle returns the recovered bundle, or nil while shares are missing.
func (r *BundleRecovery) Bundle() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bundle
}

// CombineShares recovers a bundle from a complete set of encoded shares.
func CombineShares(encoded [][]byte) ([]byte, error) {
	recovery := NewBundleRecovery()
	for _, data := range encoded {
		done, err := recovery.SubmitShare(data)
		if err != nil && !errors.Is(err, ErrRecoveryComplete) {
			return nil, err
		}
		if done {
			return recovery.Bundle(), nil
		}
	}
	return nil, fmt.Errorf("%w: not enough shares to reach the threshold", ErrShareMismatch)
}

// Securely wipe data from memory
func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
