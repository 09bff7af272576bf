package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jsphweid/staffmidi/model"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// BatchGetItem refuses more keys than this
const maxBatchKeys = 100

// MetadataStore is what the export endpoint needs from the registry.
type MetadataStore interface {
	PutExportMetadata(ctx context.Context, m model.ExportMetadata) error
	GetExportMetadatas(ctx context.Context, exportIds []string) (map[string]model.ExportMetadata, error)
}

type Store struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewStore(endpoint string, region string, table string) (*Store, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create a new DynamoDB session: %w", err)
	}
	return NewStoreWithClient(dynamodb.New(sess), table), nil
}

func NewStoreWithClient(client dynamodbiface.DynamoDBAPI, table string) *Store {
	return &Store{client: client, table: table}
}

func number(v float64) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{N: aws.String(strconv.FormatFloat(v, 'f', -1, 64))}
}

func metadataToItem(m model.ExportMetadata) map[string]*dynamodb.AttributeValue {
	item := map[string]*dynamodb.AttributeValue{
		"PK":          {S: aws.String(m.ExportId)},
		"Tempo":       number(m.Tempo),
		"MelodyNotes": number(float64(m.MelodyNotes)),
		"ChordNotes":  number(float64(m.ChordNotes)),
		"Bytes":       number(float64(m.Bytes)),
		"CreatedAt":   {S: aws.String(m.CreatedAt.UTC().Format(time.RFC3339))},
	}
	if m.Title != "" {
		item["Title"] = &dynamodb.AttributeValue{S: aws.String(m.Title)}
	}
	return item
}

func readNumber(item map[string]*dynamodb.AttributeValue, key string) float64 {
	v, ok := item[key]
	if !ok || v.N == nil {
		return 0
	}
	f, _ := strconv.ParseFloat(*v.N, 64)
	return f
}

func itemToMetadata(item map[string]*dynamodb.AttributeValue) model.ExportMetadata {
	var m model.ExportMetadata
	if v, ok := item["PK"]; ok && v.S != nil {
		m.ExportId = *v.S
	}
	if v, ok := item["Title"]; ok && v.S != nil {
		m.Title = *v.S
	}
	if v, ok := item["CreatedAt"]; ok && v.S != nil {
		m.CreatedAt, _ = time.Parse(time.RFC3339, *v.S)
	}
	m.Tempo = readNumber(item, "Tempo")
	m.MelodyNotes = int(readNumber(item, "MelodyNotes"))
	m.ChordNotes = int(readNumber(item, "ChordNotes"))
	m.Bytes = int(readNumber(item, "Bytes"))
	return m
}

func (s *Store) PutExportMetadata(ctx context.Context, m model.ExportMetadata) error {
	_, err := s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      metadataToItem(m),
	})
	if err != nil {
		return fmt.Errorf("error from DynamoDB: %w", err)
	}
	return nil
}

func (s *Store) GetExportMetadatas(ctx context.Context, exportIds []string) (map[string]model.ExportMetadata, error) {
	if len(exportIds) > maxBatchKeys {
		return nil, fmt.Errorf("at most %d export ids per lookup, got %d", maxBatchKeys, len(exportIds))
	}

	res := make(map[string]model.ExportMetadata)
	if len(exportIds) == 0 {
		return res, nil
	}

	var keys []map[string]*dynamodb.AttributeValue
	for _, id := range exportIds {
		keys = append(keys, map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(id)},
		})
	}

	dbres, err := s.client.BatchGetItemWithContext(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]*dynamodb.KeysAndAttributes{
			s.table: {Keys: keys},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error from DynamoDB: %w", err)
	}

	for _, item := range dbres.Responses[s.table] {
		m := itemToMetadata(item)
		res[m.ExportId] = m
	}
	return res, nil
}
