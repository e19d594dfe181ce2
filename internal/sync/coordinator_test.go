package sync

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papermint/papermint-server/internal/domain"
	"github.com/papermint/papermint-server/internal/reactive"
)

// stubStore is a minimal BoardStore exposing just the reactive slots the
// coordinator consumes.
type stubStore struct {
	current  *reactive.Cell[*domain.Board]
	previews *reactive.Cell[[]domain.BoardPreview]

	// stored stands in for the store's backing data; RefreshPreviews
	// publishes it when set.
	stored []domain.BoardPreview
}

func newStubStore() *stubStore {
	return &stubStore{
		current:  reactive.NewCell[*domain.Board](),
		previews: reactive.NewCell[[]domain.BoardPreview](),
	}
}

func (s *stubStore) AddBoard(context.Context, *domain.Board) error        { return nil }
func (s *stubStore) UpdateBoard(context.Context, *domain.Board) error     { return nil }
func (s *stubStore) RemoveBoard(context.Context, string) error            { return nil }
func (s *stubStore) ResetCurrentBoard()                                   { s.current.Set(nil) }
func (s *stubStore) AddCard(context.Context, string, domain.Card) error   { return nil }
func (s *stubStore) RemoveCard(context.Context, string, string) error     { return nil }
func (s *stubStore) CurrentBoard() *reactive.Cell[*domain.Board]          { return s.current }
func (s *stubStore) BoardPreviews() *reactive.Cell[[]domain.BoardPreview] { return s.previews }
func (s *stubStore) FetchBoard(context.Context, string) (*domain.Board, error) {
	return nil, nil
}
func (s *stubStore) ConvertToGift(context.Context, *domain.Board) (*domain.Board, error) {
	return nil, nil
}

func (s *stubStore) RefreshPreviews(context.Context) error {
	if s.stored != nil {
		s.previews.Set(s.stored)
	}
	return nil
}

func syncTestBoard(id string) *domain.Board {
	created := time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)
	return &domain.Board{
		ID:        id,
		Title:     "valentines",
		CreatedAt: created,
		EndTime:   created.Add(time.Hour),
	}
}

func startCoordinator(t *testing.T) (*Coordinator, *stubStore, *stubStore, <-chan Resolved) {
	t.Helper()

	local := newStubStore()
	remote := newStubStore()
	c := New(local, remote, nil, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go c.Run(ctx)
	resolved := c.Resolved().Subscribe(ctx)
	return c, local, remote, resolved
}

func awaitResolved(t *testing.T, ch <-chan Resolved) Resolved {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resolution")
		return Resolved{}
	}
}

func TestCoordinator_RemoteWins(t *testing.T) {
	tests := []struct {
		name          string
		localBoard    *domain.Board
		remoteBoard   *domain.Board
		wantID        string
		wantResidency domain.Residency
	}{
		{"remote only", nil, syncTestBoard("board-r"), "board-r", domain.ResidencyRemote},
		{"both set, remote wins", syncTestBoard("board-l"), syncTestBoard("board-r"), "board-r", domain.ResidencyRemote},
		{"local only", syncTestBoard("board-l"), nil, "board-l", domain.ResidencyLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, local, remote, resolved := startCoordinator(t)

			// Set local first so the remote-wins emission is the final one.
			if tt.localBoard != nil {
				local.current.Set(tt.localBoard)
			}
			if tt.remoteBoard != nil {
				remote.current.Set(tt.remoteBoard)
			}

			deadline := time.After(2 * time.Second)
			for {
				select {
				case r := <-resolved:
					if r.Board != nil && r.Board.ID == tt.wantID && r.Residency == tt.wantResidency {
						return
					}
				case <-deadline:
					t.Fatalf("never resolved to %s/%s", tt.wantID, tt.wantResidency)
				}
			}
		})
	}
}

func TestCoordinator_NoneWhenBothEmpty(t *testing.T) {
	_, local, _, resolved := startCoordinator(t)

	local.current.Set(nil)

	r := awaitResolved(t, resolved)
	assert.Nil(t, r.Board)
}

func TestCoordinator_DoesNotReemitIdenticalResolution(t *testing.T) {
	_, local, _, resolved := startCoordinator(t)

	board := syncTestBoard("board-1")
	local.current.Set(board)
	r := awaitResolved(t, resolved)
	require.NotNil(t, r.Board)

	// Same content again: the coordinator must swallow it.
	local.current.Set(board.Clone())

	select {
	case r := <-resolved:
		t.Fatalf("unexpected re-emission of identical resolution: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}

	// A genuine edit still propagates.
	edited := board.Clone()
	edited.Title = "renamed"
	local.current.Set(edited)

	r = awaitResolved(t, resolved)
	require.NotNil(t, r.Board)
	assert.Equal(t, "renamed", r.Board.Title)
}

func TestCoordinator_FallsBackWhenRemoteClears(t *testing.T) {
	_, local, remote, resolved := startCoordinator(t)

	local.current.Set(syncTestBoard("board-l"))
	remote.current.Set(syncTestBoard("board-r"))

	// Drain until the remote board is resolved.
	deadline := time.After(2 * time.Second)
	for {
		var r Resolved
		select {
		case r = <-resolved:
		case <-deadline:
			t.Fatal("never resolved remote board")
		}
		if r.Board != nil && r.Residency == domain.ResidencyRemote {
			break
		}
	}

	// Remote slot clears (e.g. screen closed); local becomes authoritative.
	remote.current.Set(nil)

	r := awaitResolved(t, resolved)
	require.NotNil(t, r.Board)
	assert.Equal(t, "board-l", r.Board.ID)
	assert.Equal(t, domain.ResidencyLocal, r.Residency)
}
