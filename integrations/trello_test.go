package integrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbenhadj/locadash/internal/trellotest"
)

func newTestClient(t *testing.T, srv *trellotest.Server, boardRef string) *TrelloClient {
	t.Helper()
	tc, err := NewTrelloClientAt(srv.HTTPClient(), "k", "t", boardRef, srv.URL())
	require.NoError(t, err)
	return tc
}

func TestNewTrelloClientMissingConfig(t *testing.T) {
	_, err := NewTrelloClient("", "tok", "board")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"TRELLO_KEY"}, cfgErr.Missing)

	_, err = NewTrelloClient("", "", "")
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Missing, 3)
}

func TestExtractBoardRef(t *testing.T) {
	assert.Equal(t, "5f0000000000000000000001", extractBoardRef(" 5f0000000000000000000001 "))
	assert.Equal(t, "abCdEf12", extractBoardRef("abCdEf12"))
	assert.Equal(t, "abCdEf12", extractBoardRef("https://trello.com/b/abCdEf12/mon-board"))
	assert.Equal(t, "abCdEf12", extractBoardRef("https://trello.com/b/abCdEf12"))
}

func TestBoardResolution(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()

	for _, ref := range []string{
		srv.BoardID,
		srv.ShortLink,
	} {
		tc := newTestClient(t, srv, ref)
		assert.Equal(t, srv.BoardID, tc.BoardID)
		assert.Equal(t, "Test Board", tc.Board.Name)
	}
}

func TestListIDExactMatchAfterTrim(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES", "✅ TERMINÉES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	id, err := tc.ListID("  📥 DEMANDES  ")
	require.NoError(t, err)
	assert.Equal(t, srv.ListID("📥 DEMANDES"), id)

	// no case folding: a different casing is a different list
	_, err = tc.ListID("📥 demandes")
	var notFound *ListNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestListIDRefreshesOnceOnMiss(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	_, err := tc.ListID("📥 DEMANDES")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.ListFetches)

	// list created after the cache was built: one refresh finds it
	srv.AddList("💸 DÉPENSES")
	id, err := tc.ListID("💸 DÉPENSES")
	require.NoError(t, err)
	assert.Equal(t, srv.ListID("💸 DÉPENSES"), id)
	assert.Equal(t, 2, srv.ListFetches)

	// a genuinely absent name costs exactly one more refresh, then fails
	_, err = tc.ListID("🚀 FUSÉES")
	var notFound *ListNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "🚀 FUSÉES", notFound.Name)
	assert.Contains(t, notFound.Available, "📥 DEMANDES")
	assert.Equal(t, 3, srv.ListFetches)
}

func TestCreateAndGetCard(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	created, err := tc.CreateCard("📥 DEMANDES", "Dupont — Clio", `{"_type":"booking"}`)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, srv.ListID("📥 DEMANDES"), created.ListID)

	fetched, err := tc.GetCard(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dupont — Clio", fetched.Name)
	assert.Equal(t, `{"_type":"booking"}`, fetched.Desc)
	assert.False(t, fetched.Closed)
	assert.NotEmpty(t, fetched.LastActivity)
}

func TestUpdateCardPartial(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	card := srv.SeedCard("📥 DEMANDES", "old name", "old desc")

	newDesc := "new desc"
	updated, err := tc.UpdateCard(card.ID, CardPatch{Desc: &newDesc})
	require.NoError(t, err)
	assert.Equal(t, "new desc", updated.Desc)
	assert.Equal(t, "old name", updated.Name, "name was not in the patch")

	newName := "new name"
	updated, err = tc.UpdateCard(card.ID, CardPatch{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "new name", updated.Name)
	assert.Equal(t, "new desc", updated.Desc)
}

func TestMoveCardThenList(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES", "📅 RÉSERVÉES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	card := srv.SeedCard("📥 DEMANDES", "Dupont — Clio", "")

	moved, err := tc.MoveCard(card.ID, "📅 RÉSERVÉES")
	require.NoError(t, err)
	assert.Equal(t, srv.ListID("📅 RÉSERVÉES"), moved.ListID)

	cards, err := tc.ListCards("📅 RÉSERVÉES")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, card.ID, cards[0].ID)

	cards, err = tc.ListCards("📥 DEMANDES")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestListCardsPagination(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)
	tc.pageSize = 2

	var seeded []string
	for i := 0; i < 5; i++ {
		c := srv.SeedCard("📥 DEMANDES", "card", "")
		seeded = append(seeded, c.ID)
	}

	cards, err := tc.ListCards("📥 DEMANDES")
	require.NoError(t, err)
	require.Len(t, cards, 5)

	got := map[string]bool{}
	for _, c := range cards {
		assert.False(t, got[c.ID], "card %s returned twice", c.ID)
		got[c.ID] = true
	}
	for _, id := range seeded {
		assert.True(t, got[id], "card %s missing from paged fetch", id)
	}
}

func TestArchiveCardExcludesFromList(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	card := srv.SeedCard("📥 DEMANDES", "Dupont", "")
	require.NoError(t, tc.ArchiveCard(card.ID))

	cards, err := tc.ListCards("📥 DEMANDES")
	require.NoError(t, err)
	assert.Empty(t, cards)

	stored, ok := srv.Card(card.ID)
	require.True(t, ok, "archive must not erase the card")
	assert.True(t, stored.Closed)
}

func TestRemoteErrorCarriesStatus(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	_, err := tc.GetCard("ffffffffffffffffffffffff")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 404, remote.Status)
	assert.Contains(t, remote.Error(), "404")
}

func TestAddCommentAndAttachFile(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	card := srv.SeedCard("📥 DEMANDES", "Dupont", "")

	require.NoError(t, tc.AddComment(card.ID, "appelé le client"))
	assert.Equal(t, []string{"appelé le client"}, srv.Comments[card.ID])

	require.NoError(t, tc.AttachFile(card.ID, "contrat.pdf", []byte("%PDF-1.4")))
	assert.Equal(t, []string{"contrat.pdf"}, srv.Attachments[card.ID])
}

func TestEnsureListCreatesMissing(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	// an existing list is returned, not duplicated
	id, err := tc.EnsureList("📥 DEMANDES", "top")
	require.NoError(t, err)
	assert.Equal(t, srv.ListID("📥 DEMANDES"), id)

	id, err = tc.EnsureList("💸 DÉPENSES", "bottom")
	require.NoError(t, err)
	assert.Equal(t, srv.ListID("💸 DÉPENSES"), id)

	// a second ensure finds the freshly created list
	again, err := tc.EnsureList("💸 DÉPENSES", "bottom")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestEnsureLabelIdempotent(t *testing.T) {
	srv := trellotest.New("📥 DEMANDES")
	defer srv.Close()
	tc := newTestClient(t, srv, srv.BoardID)

	id, err := tc.EnsureLabel("DEMANDE", "yellow")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, srv.Labels, 1)
	assert.Equal(t, "yellow", srv.Labels[0].Color)

	again, err := tc.EnsureLabel("DEMANDE", "red")
	require.NoError(t, err)
	assert.Equal(t, id, again, "an existing label is matched by name, not recreated")
	assert.Len(t, srv.Labels, 1)
}

func TestIsListID(t *testing.T) {
	assert.True(t, IsListID("5f0000000000000000000001"))
	assert.True(t, IsListID("  5F0000000000000000000001  "))
	assert.False(t, IsListID("📥 DEMANDES"))
	assert.False(t, IsListID("abc"))
}
