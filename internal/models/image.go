package models

// UploadedImage is the metadata the image storage returns for a stored object.
// The ETag is what download and delete URLs are built from.
type UploadedImage struct {
	ObjectName   string `json:"object_name"`
	ETag         string `json:"etag"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}
