package notion

import (
	"context"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// ReferenceClient is the slice of the record store client the resolver needs.
type ReferenceClient interface {
	GetUsers(ctx context.Context, ids []string, token string) ([]User, error)
	SignAsset(ctx context.Context, url, blockID, token string) (string, error)
}

// personRef marks a decoded person field awaiting user resolution.
type personRef struct {
	rowIndex int
	field    string
	userIDs  []string
}

// creatorRef marks a row's created_by_id awaiting user resolution.
type creatorRef struct {
	rowIndex int
	userID   string
}

// assetRef marks a page-cover URL awaiting signing.
type assetRef struct {
	rowIndex int
	url      string
	blockID  string
}

// RowBatch is a batch of assembled rows plus every foreign reference collected
// while assembling them. The batch is owned by a single request; nothing here
// is shared.
type RowBatch struct {
	Rows []Row

	persons  []personRef
	creators []creatorRef
	assets   []assetRef

	userIDSeen map[string]bool
	userIDs    []string
}

func newRowBatch() *RowBatch {
	return &RowBatch{userIDSeen: map[string]bool{}}
}

func (b *RowBatch) addUserID(id string) {
	if id == "" || b.userIDSeen[id] {
		return
	}
	b.userIDSeen[id] = true
	b.userIDs = append(b.userIDs, id)
}

// Resolver splices resolved users and signed asset URLs back into a row batch.
type Resolver struct {
	client ReferenceClient
	logger *zap.Logger
	pool   pond.Pool
}

// NewResolver returns a resolver backed by the given client. The pool bounds
// how many asset-signing calls run at once.
func NewResolver(client ReferenceClient, logger *zap.Logger, maxWorkers int) *Resolver {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client: client,
		logger: logger,
		pool:   pond.NewPool(maxWorkers),
	}
}

// Resolve performs the batched lookups for a row batch: exactly one user
// fetch covering every person field and creator, then one signing call per
// distinct cover asset, all issued concurrently. Failures degrade the
// affected fields and never fail the batch.
func (r *Resolver) Resolve(ctx context.Context, batch *RowBatch, token string) {
	r.resolveUsers(ctx, batch, token)
	r.resolveAssets(ctx, batch, token)
}

func (r *Resolver) resolveUsers(ctx context.Context, batch *RowBatch, token string) {
	if len(batch.creators) == 0 && len(batch.persons) == 0 {
		return
	}

	userMap := map[string]User{}
	if len(batch.userIDs) > 0 {
		users, err := r.client.GetUsers(ctx, batch.userIDs, token)
		if err != nil {
			r.logger.Warn("User lookup failed, rows keep empty person fields",
				zap.Int("ids", len(batch.userIDs)),
				zap.Error(err))
		}
		for _, u := range users {
			if u.ID != "" {
				userMap[u.ID] = u
			}
		}
	}

	for _, ref := range batch.persons {
		resolved := []User{}
		for _, id := range ref.userIDs {
			if u, ok := userMap[id]; ok {
				resolved = append(resolved, u)
			}
		}
		batch.Rows[ref.rowIndex][ref.field] = resolved
	}

	for _, ref := range batch.creators {
		creator := []User{}
		if u, ok := userMap[ref.userID]; ok {
			creator = append(creator, u)
		}
		batch.Rows[ref.rowIndex]["Created By"] = creator
	}
}

func (r *Resolver) resolveAssets(ctx context.Context, batch *RowBatch, token string) {
	if len(batch.assets) == 0 {
		return
	}

	group := r.pool.NewGroup()
	for _, ref := range batch.assets {
		group.Submit(func() {
			signed, err := r.client.SignAsset(ctx, ref.url, ref.blockID, token)
			if err != nil {
				// Keep the raw URL; a single cover must not fail the batch.
				r.logger.Warn("Asset signing failed",
					zap.String("blockId", ref.blockID),
					zap.Error(err))
				return
			}
			if format := batch.Rows[ref.rowIndex].Format(); format != nil {
				format["page_cover"] = signed
			}
		})
	}
	_ = group.Wait()
}
