package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapError_IsKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError("ingest.upsert_chunks", ErrStoreFailure, cause)

	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.Equal(t, "ingest.upsert_chunks: store failure: connection refused", err.Error())
}

func TestWrapError_BareKind(t *testing.T) {
	err := WrapError("query.embed", ErrNotReady, nil)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, "query.embed: embedding space not fitted", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"invalid input", WrapError("op", ErrInvalidInput, nil), ErrInvalidInput},
		{"not ready", WrapError("op", ErrNotReady, nil), ErrNotReady},
		{"exhausted", WrapError("op", ErrResourceExhausted, nil), ErrResourceExhausted},
		{"store", fmt.Errorf("outer: %w", WrapError("op", ErrStoreFailure, errors.New("x"))), ErrStoreFailure},
		{"not found", WrapError("op", ErrNotFound, nil), ErrNotFound},
		{"untagged", errors.New("boom"), ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "not_ready", KindName(ErrNotReady))
	assert.Equal(t, "store_failure", KindName(ErrStoreFailure))
	assert.Equal(t, "internal", KindName(errors.New("other")))
}

func TestValidRelationType(t *testing.T) {
	assert.True(t, ValidRelationType("CITES"))
	assert.True(t, ValidRelationType("EXTENDS_2"))
	assert.False(t, ValidRelationType("cites"))
	assert.False(t, ValidRelationType("CITES]->(x) DETACH DELETE x //"))
	assert.False(t, ValidRelationType(""))
	assert.False(t, ValidRelationType(RelationWrote))
}

func TestRetrievalContext_PaperIDs(t *testing.T) {
	rc := &RetrievalContext{Passages: []Passage{
		{PaperID: "b"}, {PaperID: "a"}, {PaperID: "b"},
	}}
	assert.Equal(t, []string{"b", "a"}, rc.PaperIDs())
}
