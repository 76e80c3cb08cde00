package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// TableClient is the slice of the record store client the assembler needs.
type TableClient interface {
	QueryCollection(ctx context.Context, collectionID, viewID string, q CollectionQuery, token string) (*CollectionResult, error)
}

// TableOptions selects which view of the collection to query and how.
type TableOptions struct {
	ViewID string
	Filter *FilterGroup
	Sort   json.RawMessage
	Limit  int
	// Raw bypasses value decoding entirely: properties come back as the
	// untouched rich-value tuples.
	Raw   bool
	Token string
}

// TableResult is an assembled collection: decoded rows plus the schema and
// raw block records they came from.
type TableResult struct {
	Rows     []Row                    `json:"rows"`
	Schema   map[string]*SchemaColumn `json:"schema"`
	Name     string                   `json:"name"`
	TableArr []*BlockRecord           `json:"tableArr"`
}

// Assembler builds row batches out of collection query results.
type Assembler struct {
	client   TableClient
	resolver *Resolver
	logger   *zap.Logger
}

// NewAssembler returns an assembler. The resolver may be nil, in which case
// foreign references (users, cover assets) are left unresolved.
func NewAssembler(client TableClient, resolver *Resolver, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{client: client, resolver: resolver, logger: logger}
}

// Assemble queries the collection through the given view and decodes the
// matching blocks into rows. Only the collection query itself is fatal;
// everything downstream degrades per row or per field.
func (a *Assembler) Assemble(ctx context.Context, collection *Collection, opts TableOptions) (*TableResult, error) {
	if collection == nil || collection.Schema == nil {
		return nil, fmt.Errorf("%w: collection schema not found", ErrNoCollection)
	}

	table, err := a.client.QueryCollection(ctx, collection.ID, opts.ViewID, CollectionQuery{
		Filter: opts.Filter,
		Sort:   opts.Sort,
		Limit:  opts.Limit,
	}, opts.Token)
	if err != nil {
		return nil, err
	}

	result := &TableResult{
		Rows:     []Row{},
		Schema:   collection.Schema,
		Name:     collection.DisplayName(),
		TableArr: []*BlockRecord{},
	}

	blockIDs := reducerBlockIDs(table)
	if blockIDs == nil {
		// Upstream omitted the reducer results; an empty table is the
		// correct degradation, not an error.
		a.logger.Warn("No block IDs in collection response",
			zap.String("collectionId", collection.ID))
		return result, nil
	}

	blocks := map[string]*BlockRecord{}
	if table.RecordMap != nil {
		blocks = table.RecordMap.Blocks
	}

	batch := newRowBatch()
	for _, id := range blockIDs {
		rec := blocks[id]
		if rec == nil || rec.Value == nil {
			// Listed but absent from the record map: drop silently.
			continue
		}
		result.TableArr = append(result.TableArr, rec)

		b := rec.Value
		if b.ParentID != collection.ID || len(b.Properties) == 0 {
			continue
		}
		a.appendRow(batch, b, collection.Schema, opts.Raw)
	}

	if a.resolver != nil {
		a.resolver.Resolve(ctx, batch, opts.Token)
	}

	result.Rows = batch.Rows
	return result, nil
}

// appendRow decodes one member block into a row and registers its foreign
// references on the batch.
func (a *Assembler) appendRow(batch *RowBatch, b *Block, schema map[string]*SchemaColumn, raw bool) {
	row := Row{"id": b.ID, "format": b.Format}
	idx := len(batch.Rows)

	// Schema keys are walked in sorted order so that two keys sharing a
	// display name resolve deterministically (last key wins).
	for _, key := range sortedKeys(schema) {
		val, ok := b.Properties[key]
		if !ok || len(val) == 0 {
			continue
		}
		col := schema[key]
		if raw {
			row[col.Name] = val
			continue
		}
		decoded := Decode(val, col.Type, b)
		row[col.Name] = decoded
		if col.Type == ColumnPerson {
			if ids, ok := decoded.([]string); ok && len(ids) > 0 {
				for _, id := range ids {
					batch.addUserID(id)
				}
				batch.persons = append(batch.persons, personRef{rowIndex: idx, field: col.Name, userIDs: ids})
			}
		}
	}

	// Property keys with no schema entry pass through raw under the
	// internal key rather than being dropped.
	for key, val := range b.Properties {
		if _, ok := schema[key]; ok || len(val) == 0 {
			continue
		}
		a.logger.Warn("Property key missing from schema, passing through raw",
			zap.String("blockId", b.ID),
			zap.String("property", key))
		row[key] = val
	}

	if cover, ok := b.Format["page_cover"].(string); ok && cover != "" {
		batch.assets = append(batch.assets, assetRef{rowIndex: idx, url: cover, blockID: b.ID})
	}

	if b.CreatedByID != "" {
		batch.addUserID(b.CreatedByID)
		batch.creators = append(batch.creators, creatorRef{rowIndex: idx, userID: b.CreatedByID})
	}

	batch.Rows = append(batch.Rows, row)
}

// reducerBlockIDs digs the row-block ID list out of the reducer response,
// returning nil when any level of the expected shape is missing.
func reducerBlockIDs(table *CollectionResult) []string {
	if table == nil || table.Result == nil || table.Result.ReducerResults == nil {
		return nil
	}
	group := table.Result.ReducerResults.GroupResults
	if group == nil || group.BlockIDs == nil {
		return nil
	}
	return group.BlockIDs
}

func sortedKeys(m map[string]*SchemaColumn) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
