package metadata

import (
	"context"
	"fmt"

	"github.com/catermarket/caterauth/internal/common"
	"github.com/catermarket/caterauth/internal/cryptox"
)

// SaltKey holds the per-database salt of a SealedRepository. It is never
// returned by List.
const SaltKey = "_salt"

var _ Repository = (*SealedRepository)(nil)

// SealedRepository encrypts values before handing them to the inner
// repository. Each value is bound to its key.
type SealedRepository struct {
	inner  Repository
	sealer *cryptox.Sealer
	salt   []byte
}

// NewSealedRepository loads the salt from inner, creating one on first use,
// and derives the sealing key from secret.
func NewSealedRepository(ctx context.Context, inner Repository, secret []byte) (*SealedRepository, error) {
	salt, err := inner.Get(ctx, SaltKey)
	if err != nil {
		return nil, err
	}
	if len(salt) != cryptox.SaltSize {
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		if err := inner.Set(ctx, SaltKey, salt); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
	}

	sealer, err := cryptox.NewSealer(secret, salt)
	if err != nil {
		return nil, err
	}
	return &SealedRepository{inner: inner, sealer: sealer, salt: salt}, nil
}

func (r *SealedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.inner.Get(ctx, key)
	if err != nil || v == nil {
		return nil, err
	}
	return r.open(key, v)
}

func (r *SealedRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.inner.Set(ctx, key, r.sealer.Seal(value, []byte(key)))
}

func (r *SealedRepository) Delete(ctx context.Context, key string) error {
	return r.inner.Delete(ctx, key)
}

func (r *SealedRepository) List(ctx context.Context) (map[string][]byte, error) {
	all, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	delete(all, SaltKey)
	return r.openAll(all)
}

// Clear removes every value but keeps the salt.
func (r *SealedRepository) Clear(ctx context.Context) error {
	if err := r.inner.Clear(ctx); err != nil {
		return err
	}
	return r.inner.Set(ctx, SaltKey, r.salt)
}

func (r *SealedRepository) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	got, err := r.inner.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	return r.openAll(got)
}

func (r *SealedRepository) SetMany(ctx context.Context, values map[string][]byte) error {
	sealed := make(map[string][]byte, len(values))
	for k, v := range values {
		sealed[k] = r.sealer.Seal(v, []byte(k))
	}
	return r.inner.SetMany(ctx, sealed)
}

func (r *SealedRepository) DeleteMany(ctx context.Context, keys []string) error {
	return r.inner.DeleteMany(ctx, keys)
}

func (r *SealedRepository) open(key string, v []byte) ([]byte, error) {
	plain, err := r.sealer.Open(v, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("metadata[%s]: %w", key, err)
	}
	return plain, nil
}

func (r *SealedRepository) openAll(in map[string][]byte) (map[string][]byte, error) {
	out := make(map[string][]byte, len(in))
	for k, v := range in {
		plain, err := r.open(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = plain
	}
	return out, nil
}
