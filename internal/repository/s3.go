package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/util"
)

// S3API is the part of the S3 client the repository uses.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3DocumentRepository keeps one object per document. Object keys play the
// role file names play for FSDocumentRepository.
type S3DocumentRepository struct { // implements DocumentRepository
	*index

	client S3API
	bucket string

	// ETag per key, so unchanged objects are not downloaded again.
	etagMu sync.Mutex
	etags  map[string]string
}

type S3Options struct {
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
	Region          string
	Bucket          string
}

func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.AccessKeySecret, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3DocumentRepository(client S3API, bucket string) *S3DocumentRepository {
	return &S3DocumentRepository{
		index:  newIndex(),
		client: client,
		bucket: bucket,
		etags:  make(map[string]string),
	}
}

func (r *S3DocumentRepository) etag(key string) string {
	r.etagMu.Lock()
	defer r.etagMu.Unlock()
	return r.etags[key]
}

func s3DocumentID(key string) model.DocumentID {
	return model.DocumentID(util.ContentHashString(key))
}

func (r *S3DocumentRepository) Init(ctx context.Context) error {
	docs, docMap, err := r.GetDocuments(ctx)
	if err != nil {
		return fmt.Errorf("error initializing documents: %w", err)
	}

	r.replace(docs, docMap)
	return nil
}

func (r *S3DocumentRepository) readObject(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting %s: %w", key, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (r *S3DocumentRepository) GetDocuments(ctx context.Context) ([]model.Document, map[model.DocumentID]*model.Document, error) {
	var docs []model.Document
	etags := make(map[string]string)

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("error listing objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			format, ok := fsExtensions[strings.ToLower(path.Ext(key))]
			if !ok {
				continue
			}
			id := s3DocumentID(key)
			etag := aws.ToString(obj.ETag)
			etags[key] = etag

			modified := aws.ToTime(obj.LastModified)
			doc := model.Document{
				ID:           id,
				Name:         strings.TrimSuffix(path.Base(key), path.Ext(key)),
				Path:         key,
				Format:       format,
				CreatedDate:  modified,
				ModifiedDate: modified,
			}

			if cached, found := r.documents.Get(id); found && etag != "" && r.etag(key) == etag {
				doc.SetContent(cached.Content)
				doc.Owner = cached.Owner
			} else {
				content, err := r.readObject(ctx, key)
				if err != nil {
					return nil, nil, err
				}
				doc.SetContent(content)
			}

			docs = append(docs, doc)
		}
	}

	r.etagMu.Lock()
	r.etags = etags
	r.etagMu.Unlock()

	sortDocuments(docs)
	docMap := make(map[model.DocumentID]*model.Document, len(docs))
	for i := range docs {
		docMap[docs[i].ID] = &docs[i]
	}

	return docs, docMap, nil
}

func (r *S3DocumentRepository) reload(ctx context.Context) {
	docs, docMap, err := r.GetDocuments(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error reloading documents")
		return
	}
	r.reconcile(docs, docMap)
}

func (r *S3DocumentRepository) ReloadDocuments(ctx context.Context, interval time.Duration) {
	poll(ctx, interval, r.reload)
}

func (r *S3DocumentRepository) NewDocument(name string, format model.Format, owner model.UserID) *model.Document {
	key := fileNameFor(name, format)
	doc := newDocument(s3DocumentID(key), name, format, owner)
	doc.Path = key
	return doc
}

func contentTypeFor(format model.Format) string {
	if format == model.FormatRich {
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "text/markdown; charset=utf-8"
}

func (r *S3DocumentRepository) putObject(ctx context.Context, doc *model.Document) error {
	out, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(doc.Path),
		Body:          bytes.NewReader(doc.Content),
		ContentLength: aws.Int64(int64(len(doc.Content))),
		ContentType:   aws.String(contentTypeFor(doc.Format)),
	})
	if err != nil {
		return fmt.Errorf("error putting %s: %w", doc.Path, err)
	}
	if out != nil && out.ETag != nil {
		r.etagMu.Lock()
		r.etags[doc.Path] = aws.ToString(out.ETag)
		r.etagMu.Unlock()
	}
	return nil
}

func (r *S3DocumentRepository) SaveDocument(ctx context.Context, doc *model.Document) error {
	if doc.Path == "" {
		doc.Path = fileNameFor(doc.Name, doc.Format)
		doc.ID = s3DocumentID(doc.Path)
	}
	doc.ContentHash = util.ContentHash(doc.Content)

	if err := r.putObject(ctx, doc); err != nil {
		return fmt.Errorf("error saving document: %w", err)
	}

	r.put(doc)
	return nil
}

func (r *S3DocumentRepository) SetDocumentContent(ctx context.Context, id model.DocumentID, content []byte) (*model.Document, error) {
	doc, err := r.ReadDocument(id)
	if err != nil {
		return nil, err
	}

	doc.SetContent(content)
	doc.ModifiedDate = time.Now().UTC()

	if err := r.putObject(ctx, doc); err != nil {
		return nil, err
	}

	r.put(doc)
	repoLogger.Debug().Str("document_id", string(doc.ID)).Str("key", doc.Path).Msg("Document uploaded")
	return doc, nil
}
