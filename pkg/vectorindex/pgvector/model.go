package pgvector

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ChunkEmbedding is one indexed chunk. Namespace holds the session id.
type ChunkEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace      string          `gorm:"type:varchar(64);not null;index"`
	Content        string          `gorm:"type:text"`
	SourceFile     string          `gorm:"type:text"`
	PageNumber     int             `gorm:"not null"`
	Ordinal        int             `gorm:"not null;default:0"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}

type chunkMetadata struct {
	Dimension int    `json:"dimension"`
	TaskType  string `json:"task_type"`
}
