// Package s3 provides a small client for S3-compatible object storage.
//
// It is used to read pre-supplied resource lists from s3://bucket/key URLs
// and to upload exported inventories. The endpoint, region and static
// credentials can be set through OSCLEAN_S3_* environment variables;
// otherwise the AWS default credential chain applies.
package s3
