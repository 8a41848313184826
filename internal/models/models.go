package models

import "time"

// MetadataRecord 是规范化之后的一次上传的描述信息，所有字段都非空。
type MetadataRecord struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	ShootingTime     string `json:"shooting_time"`
	ShootingLocation string `json:"shooting_location"`
	Photographer     string `json:"photographer"`
}

// ImageRef 指向一张已经落盘的上传图片。
type ImageRef struct {
	// FileName 是清理后实际使用的文件名，可能与上传时的原始文件名不同。
	FileName string `json:"fileName"`

	// StoredPath 是文件的完整存储路径。
	StoredPath string `json:"storedPath"`
}

// GeneratedFile 是一次生成得到的报告文件。
type GeneratedFile struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	ImageCount int       `json:"imageCount"`
	CreatedAt  time.Time `json:"createdAt"`
}
