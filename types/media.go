package types

// Media describes an object uploaded to external storage.
type Media struct {
	// URL is the public address clients embed in posts.
	URL string `json:"url"`

	// PublicID is the object key within the storage bucket.
	PublicID string `json:"publicId"`
}
