package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/tracker/internal/tracker/store"
)

// Export writes every stored occurrence, oldest first, as size-delimited
// google.protobuf.Struct messages with fields type_id, name and
// occurred_at (RFC 3339, UTC). It returns the number of records written.
func Export(ctx context.Context, st store.Store, w io.Writer) (int, error) {
	var occurrences []store.Occurrence
	err := store.WithSession(ctx, st, func(sess store.Session) error {
		var err error
		occurrences, err = sess.Occurrences(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	for i, o := range occurrences {
		rec, err := occurrenceStruct(o)
		if err != nil {
			return i, fmt.Errorf("export record %d: %w", i, err)
		}
		if _, err := protodelim.MarshalTo(w, rec); err != nil {
			return i, fmt.Errorf("export record %d: %w", i, err)
		}
	}
	return len(occurrences), nil
}

func occurrenceStruct(o store.Occurrence) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"type_id":     o.TypeID,
		"name":        o.Name,
		"occurred_at": o.OccurredAt.UTC().Format(time.RFC3339),
	})
}
