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
	MimeJSON = "application/json"
)

// 分页与数量上限
const (
	DefaultRecommendK = 10
	MaxRecommendK     = 50
	DefaultPageSize   = 20
	MaxPageSize       = 100
)
