// Package s3 stores verdoc snapshots as objects in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/golang-lru/simplelru"
)

// knownNames is how many stored or loaded snapshot names are remembered to
// skip redundant uploads.
const knownNames = 1000

// S3Interface is the subset of the S3 client the Persist needs.
type S3Interface interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Persist implements verdoc.Persist with one object per snapshot, named
// Prefix followed by the snapshot link.
type Persist struct {
	s3         S3Interface
	BucketName string
	Prefix     string

	mu    sync.Mutex
	known *simplelru.LRU
}

// Load fetches the snapshot stored under name.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	key := p.Prefix + name
	output, err := p.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", p.BucketName, key, err)
	}
	defer output.Body.Close()
	b, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", p.BucketName, key, err)
	}
	p.remember(name)
	return b, nil
}

// Store uploads the snapshot under name, unless this Persist has already
// seen an object by that name.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	if p.seen(name) {
		return nil
	}
	key := p.Prefix + name
	_, err := p.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.BucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", p.BucketName, key, err)
	}
	p.remember(name)
	return nil
}

func (p *Persist) seen(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.known.Contains(name)
}

func (p *Persist) remember(name string) {
	p.mu.Lock()
	p.known.Add(name, nil)
	p.mu.Unlock()
}

// NewPersist returns a Persist that loads and stores snapshots as objects
// with the given S3 client, bucket and key prefix.
func NewPersist(client S3Interface, bucketName, prefix string) *Persist {
	known, err := simplelru.NewLRU(knownNames, nil)
	if err != nil {
		panic(err)
	}
	return &Persist{s3: client, BucketName: bucketName, Prefix: prefix, known: known}
}
