package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Credentials holds S3-compatible storage authentication details.
type Credentials struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Bucket          string `json:"bucket"`
	Insecure        bool   `json:"insecure,omitempty"`
}

// ObjectInfo describes an uploaded dump.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Client wraps a minio client configured for the dump bucket.
type Client struct {
	mc      *minio.Client
	bucket  string
	verbose bool
}

// LoadCredentials reads and validates storage credentials from a JSON file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials JSON: %w", err)
	}

	if err := creds.validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (c *Credentials) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("credentials: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return fmt.Errorf("credentials: access_key_id is required")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("credentials: secret_access_key is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("credentials: bucket is required")
	}
	return nil
}

// New creates a storage client from the given credentials.
func New(creds *Credentials, verbose bool) (*Client, error) {
	mc, err := minio.New(creds.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Secure: !creds.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &Client{mc: mc, bucket: creds.Bucket, verbose: verbose}, nil
}

// Key returns the object key for one table dump taken at ts.
func Key(table string, ts time.Time) string {
	return fmt.Sprintf("%s/%s.txt", table, ts.Format("20060102-150405"))
}

// Upload sends a local dump file to the bucket under the given key.
func (c *Client) Upload(ctx context.Context, dumpPath, key string) error {
	c.logf("Uploading %s -> s3://%s/%s", dumpPath, c.bucket, key)

	info, err := c.mc.FPutObject(ctx, c.bucket, key, dumpPath, minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}

	c.logf("Uploaded %s (%d bytes)", key, info.Size)
	return nil
}

// ListByPrefix returns objects whose key starts with prefix, sorted by
// LastModified descending (newest first).
func (c *Client) ListByPrefix(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	c.logf("Listing objects with prefix %q in bucket %s", prefix, c.bucket)

	var objects []ObjectInfo
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing objects: %w", obj.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	c.logf("Found %d object(s) with prefix %q", len(objects), prefix)
	return objects, nil
}

// Delete removes a single object from the bucket.
func (c *Client) Delete(ctx context.Context, key string) error {
	c.logf("Deleting s3://%s/%s", c.bucket, key)

	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Rotate keeps only the keepLast newest objects matching prefix and
// deletes the rest. Returns the keys that were deleted.
func (c *Client) Rotate(ctx context.Context, prefix string, keepLast int) ([]string, error) {
	if keepLast <= 0 {
		return nil, nil
	}

	objects, err := c.ListByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	if len(objects) <= keepLast {
		return nil, nil
	}

	toDelete := objects[keepLast:]
	var deleted []string
	for _, obj := range toDelete {
		if err := c.Delete(ctx, obj.Key); err != nil {
			return deleted, fmt.Errorf("rotating %s: %w", obj.Key, err)
		}
		deleted = append(deleted, obj.Key)
	}

	c.logf("Rotated prefix %q: kept %d, deleted %d", prefix, keepLast, len(deleted))
	return deleted, nil
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.verbose {
		log.Printf("[remote] "+format, args...)
	}
}
