package persistence

import (
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/molpadia/molpaupload/internal/domain/entity"
)

// UploadRepository keeps upload sessions in a DynamoDB table keyed by Id.
type UploadRepository struct {
	db        *dynamodb.DynamoDB
	tableName string
}

func NewUploadRepository(sess *session.Session, tableName string) *UploadRepository {
	return &UploadRepository{dynamodb.New(sess), tableName}
}

// Get the upload by the upload ID.
func (r *UploadRepository) GetById(id string) (*entity.Upload, error) {
	out, err := r.db.GetItem(&dynamodb.GetItemInput{
		Key:            map[string]*dynamodb.AttributeValue{"Id": {S: aws.String(id)}},
		TableName:      aws.String(r.tableName),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil || len(out.Item) == 0 {
		return nil, err
	}
	var upload *entity.Upload
	err = dynamodbattribute.UnmarshalMap(out.Item, &upload)
	return upload, err
}

// Save an entity to the persistence.
func (r *UploadRepository) Save(upload *entity.Upload) error {
	av, err := dynamodbattribute.MarshalMap(upload)
	if err != nil {
		return err
	}
	_, err = r.db.PutItem(&dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		slog.Error("failed to save upload", "id", upload.Id, "error", err)
	}
	return err
}
