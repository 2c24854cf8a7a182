package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"
)

type fakeDocumentStore struct {
	docs map[string]domain.Document

	createID  string
	createErr error
	created   []domain.CreateDocumentParams

	statusSet []string
	deleted   []string

	counts domain.StatusCounts
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[string]domain.Document{}}
}

func (f *fakeDocumentStore) Create(ctx context.Context, p domain.CreateDocumentParams) (string, error) {
	f.created = append(f.created, p)
	if f.createErr != nil {
		return "", f.createErr
	}
	id := f.createID
	if _, exists := f.docs[id]; !exists {
		f.docs[id] = domain.Document{
			ID:         id,
			Status:     domain.StatusPending,
			Filename:   p.Filename,
			ObjectName: p.ObjectName,
			FileSize:   p.FileSize,
			UploadTime: time.Now(),
		}
	}
	return id, nil
}

func (f *fakeDocumentStore) Get(ctx context.Context, id string) (domain.Document, bool) {
	doc, ok := f.docs[id]
	return doc, ok
}

func (f *fakeDocumentStore) SetStatus(ctx context.Context, id string, status domain.DocumentStatus, errReason string) {
	f.statusSet = append(f.statusSet, id+":"+string(status))
	doc := f.docs[id]
	doc.Status = status
	doc.Error = errReason
	f.docs[id] = doc
}

func (f *fakeDocumentStore) List(ctx context.Context) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (f *fakeDocumentStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentStore) Counts(ctx context.Context) (domain.StatusCounts, error) {
	return f.counts, nil
}

type fakeFileStore struct {
	saved   []string
	deleted []string
	saveErr error
}

func (f *fakeFileStore) Save(ctx context.Context, reader io.Reader, objectName string, size int64) (int64, string, error) {
	if f.saveErr != nil {
		return 0, "", f.saveErr
	}
	f.saved = append(f.saved, objectName)
	n, err := io.Copy(io.Discard, reader)
	return n, "deadbeef", err
}

func (f *fakeFileStore) Delete(ctx context.Context, objectName string) error {
	f.deleted = append(f.deleted, objectName)
	return nil
}

type fakeQueue struct {
	enqueued []string
	err      error
}

func (f *fakeQueue) Enqueue(ctx context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, documentID)
	return nil
}

type fakeIndex struct {
	results    []domain.SearchResult
	queryTopK  int
	deletedFor []string
	deleteErr  error
}

func (f *fakeIndex) Query(ctx context.Context, vector [][]float32, topK int) ([]domain.SearchResult, error) {
	f.queryTopK = topK
	return f.results, nil
}

func (f *fakeIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	f.deletedFor = append(f.deletedFor, documentID)
	return f.deleteErr
}

type fakeEmbedder struct {
	vector      [][]float32
	embedErr    error
	modelLoaded bool
	queries     []string
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([][]float32, error) {
	f.queries = append(f.queries, query)
	return f.vector, f.embedErr
}

func (f *fakeEmbedder) ModelLoaded(ctx context.Context) bool {
	return f.modelLoaded
}

type fixture struct {
	docs     *fakeDocumentStore
	files    *fakeFileStore
	queue    *fakeQueue
	index    *fakeIndex
	embedder *fakeEmbedder
	uc       *usecase
}

func newFixture() *fixture {
	f := &fixture{
		docs:     newFakeDocumentStore(),
		files:    &fakeFileStore{},
		queue:    &fakeQueue{},
		index:    &fakeIndex{},
		embedder: &fakeEmbedder{vector: [][]float32{{0.1, 0.2}}},
	}
	f.uc = New(50<<20, f.docs, f.files, f.queue, f.index, f.embedder)
	return f
}

func TestUpload_HappyPath(t *testing.T) {
	f := newFixture()
	f.docs.createID = "doc1"

	id, err := f.uc.Upload(context.Background(), strings.NewReader("%PDF-1.4"), "paper.pdf", 8)

	require.NoError(t, err)
	assert.Equal(t, "doc1", id)
	require.Len(t, f.files.saved, 1)
	assert.True(t, strings.HasSuffix(f.files.saved[0], ".pdf"))
	assert.Equal(t, []string{"doc1"}, f.queue.enqueued)
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Upload(context.Background(), strings.NewReader("x"), "notes.txt", 1)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	assert.Empty(t, f.files.saved, "nothing written for a rejected upload")
}

func TestUpload_RejectsOversized(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Upload(context.Background(), strings.NewReader("x"), "paper.pdf", 51<<20)

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	assert.Empty(t, f.files.saved)
}

func TestUpload_DuplicateContentReusesExistingDocument(t *testing.T) {
	f := newFixture()
	f.docs.createID = "doc1"
	// The store already holds doc1 under another object name: a
	// content-hash match from an earlier upload.
	f.docs.docs["doc1"] = domain.Document{
		ID:         "doc1",
		Status:     domain.StatusCompleted,
		ObjectName: "original.pdf",
	}

	id, err := f.uc.Upload(context.Background(), strings.NewReader("%PDF-1.4"), "paper.pdf", 8)

	require.NoError(t, err)
	assert.Equal(t, "doc1", id)
	require.Len(t, f.files.deleted, 1, "fresh copy of duplicate content removed")
	assert.Empty(t, f.queue.enqueued, "duplicate is not re-analyzed")
}

func TestUpload_EnqueueFailureMarksDocumentFailed(t *testing.T) {
	f := newFixture()
	f.docs.createID = "doc1"
	f.queue.err = errors.New("stream unavailable")

	_, err := f.uc.Upload(context.Background(), strings.NewReader("%PDF-1.4"), "paper.pdf", 8)

	require.Error(t, err)
	assert.Contains(t, f.docs.statusSet, "doc1:failed")
}

func TestUpload_CreateFailureCleansUpFile(t *testing.T) {
	f := newFixture()
	f.docs.createErr = errors.New("redis down")

	_, err := f.uc.Upload(context.Background(), strings.NewReader("%PDF-1.4"), "paper.pdf", 8)

	require.Error(t, err)
	require.Len(t, f.files.deleted, 1)
	assert.Equal(t, f.files.saved[0], f.files.deleted[0])
}

func TestStatus_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Status(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestStatus_CompletedIncludesResult(t *testing.T) {
	f := newFixture()
	f.docs.docs["doc1"] = domain.Document{
		ID:       "doc1",
		Status:   domain.StatusCompleted,
		Filename: "paper.pdf",
		Result:   &domain.AnalysisResult{Title: "Attention Is All You Need"},
	}

	resp, err := f.uc.Status(context.Background(), "doc1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "Attention Is All You Need", resp.Result.Title)
	assert.Empty(t, resp.Error)
}

func TestStatus_FailedFallbackMessage(t *testing.T) {
	f := newFixture()
	f.docs.docs["doc1"] = domain.Document{ID: "doc1", Status: domain.StatusFailed}

	resp, err := f.uc.Status(context.Background(), "doc1")

	require.NoError(t, err)
	assert.Equal(t, "Processing failed", resp.Error)
	assert.Nil(t, resp.Result)
}

func TestDocuments_SummariesCarryResultMetadata(t *testing.T) {
	f := newFixture()
	f.docs.docs["doc1"] = domain.Document{
		ID:       "doc1",
		Status:   domain.StatusCompleted,
		Filename: "paper.pdf",
		Result: &domain.AnalysisResult{
			Title:    "Paper",
			Authors:  []domain.Author{{Name: "A"}, {Name: "B"}},
			Sections: []domain.Section{{Title: "Intro"}},
			NumPages: 12,
		},
	}
	f.docs.docs["doc2"] = domain.Document{ID: "doc2", Status: domain.StatusProcessing}

	resp, err := f.uc.Documents(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalDocuments)

	var completed domain.DocumentSummary
	for _, s := range resp.Documents {
		if s.DocumentID == "doc1" {
			completed = s
		}
	}
	assert.Equal(t, "Paper", completed.Title)
	assert.Equal(t, 2, completed.AuthorsCount)
	assert.Equal(t, 1, completed.SectionsCount)
	assert.Equal(t, 12, completed.NumPages)
}

func TestDelete_RemovesRecordFileAndIndexPoints(t *testing.T) {
	f := newFixture()
	f.docs.docs["doc1"] = domain.Document{
		ID:         "doc1",
		Filename:   "paper.pdf",
		ObjectName: "obj.pdf",
	}

	filename, err := f.uc.Delete(context.Background(), "doc1")

	require.NoError(t, err)
	assert.Equal(t, "paper.pdf", filename)
	assert.Equal(t, []string{"doc1"}, f.index.deletedFor)
	assert.Equal(t, []string{"obj.pdf"}, f.files.deleted)
	assert.Equal(t, []string{"doc1"}, f.docs.deleted)
}

func TestDelete_IndexFailureDoesNotBlockDeletion(t *testing.T) {
	f := newFixture()
	f.index.deleteErr = errors.New("qdrant unreachable")
	f.docs.docs["doc1"] = domain.Document{ID: "doc1", Filename: "paper.pdf"}

	_, err := f.uc.Delete(context.Background(), "doc1")

	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, f.docs.deleted)
}

func TestDelete_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Search(context.Background(), domain.SearchRequest{Query: "   "})

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Empty(t, f.embedder.queries)
}

func TestSearch_DefaultsAndClampsTopK(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Search(context.Background(), domain.SearchRequest{Query: "attention"})
	require.NoError(t, err)
	assert.Equal(t, defaultTopK, f.index.queryTopK)

	_, err = f.uc.Search(context.Background(), domain.SearchRequest{Query: "attention", TopK: 100})
	require.NoError(t, err)
	assert.Equal(t, maxTopK, f.index.queryTopK)
}

func TestSearch_ReturnsIndexResults(t *testing.T) {
	f := newFixture()
	f.index.results = []domain.SearchResult{
		{PaperID: "doc1", PageNumber: 3, Score: 0.92, PDFPath: "data/doc1.pdf"},
	}

	resp, err := f.uc.Search(context.Background(), domain.SearchRequest{Query: " attention "})

	require.NoError(t, err)
	assert.Equal(t, "attention", resp.Query, "query is trimmed")
	assert.Equal(t, 1, resp.TotalResults)
	assert.Equal(t, []string{"attention"}, f.embedder.queries)
}

func TestHealth_ReportsCountsAndModelState(t *testing.T) {
	f := newFixture()
	f.docs.counts = domain.StatusCounts{Total: 5, Processing: 1, Completed: 3, Failed: 1}
	f.embedder.modelLoaded = true

	resp, err := f.uc.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.ModelLoaded)
	assert.Equal(t, 5, resp.TotalDocuments)
	assert.Equal(t, 1, resp.ProcessingDocuments)
	assert.Equal(t, 3, resp.CompletedDocuments)
	assert.Equal(t, 1, resp.FailedDocuments)
	assert.NotEmpty(t, resp.Timestamp)
}
