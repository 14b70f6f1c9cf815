package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/kvalchek/pictor/internal/remote/blobstore"
)

// ProcessRequest describes one edit handed to the processing backend.
type ProcessRequest struct {
	SessionID   string
	SourceURL   string
	Instruction string
	Params      map[string]string
	MaskURL     string
}

// Processor is the image-processing backend the server delegates edits
// to. It returns the urls of the derived result images.
type Processor interface {
	Process(ctx context.Context, req *ProcessRequest) ([]string, error)
}

// maxVariants caps the result count a single edit may request.
const maxVariants = 4

// StubProcessor derives deterministic result blobs from the request
// content and stores them in the blob store. It stands in for a real
// processing backend so the full client flow is exercisable end to end.
type StubProcessor struct {
	blobs blobstore.BlobStore
}

// NewStubProcessor creates a StubProcessor writing into blobs.
func NewStubProcessor(blobs blobstore.BlobStore) *StubProcessor {
	return &StubProcessor{blobs: blobs}
}

// Process derives result blobs from the source url, instruction, mask,
// and variant index, so identical requests yield identical urls.
func (p *StubProcessor) Process(ctx context.Context, req *ProcessRequest) ([]string, error) {
	count := 1
	if v, ok := req.Params["variants"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid variants parameter %q", v)
		}
		if n > maxVariants {
			n = maxVariants
		}
		count = n
	}

	urls := make([]string, 0, count)
	for i := 0; i < count; i++ {
		seed := fmt.Sprintf("%s|%s|%s|%d", req.SourceURL, req.Instruction, req.MaskURL, i)
		sum := sha256.Sum256([]byte(seed))
		content := append([]byte("pictor-result:"), sum[:]...)

		hash := blobstore.HashBlob(content)
		if err := p.blobs.Put(ctx, hash, bytes.NewReader(content)); err != nil {
			return nil, fmt.Errorf("store result blob: %w", err)
		}
		urls = append(urls, BlobURL(hash))
	}
	return urls, nil
}

// BlobURL maps a blob hash to the path it is served under.
func BlobURL(hash string) string {
	return "/api/v1/blobs/" + hash
}
