package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MimeImage = "image/"

	// 头像最大 2MB
	MaxAvatarSize = 2 << 20
)

var AllowedAvatarExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)
