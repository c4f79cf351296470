package qdrant

import (
	"context"
	"fmt"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// NewClient establishes a gRPC connection to Qdrant and returns the clients.
func NewClient(ctx context.Context, host string, port int) (qdrant.PointsClient, qdrant.CollectionsClient, *grpc.ClientConn, error) {
	if host == "" || port == 0 {
		return nil, nil, nil, fmt.Errorf("QDRANT_SERVICE_HOST or QDRANT_SERVICE_PORT is not set")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	logrus.WithField("address", addr).Info("connecting to Qdrant gRPC service")

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logrus.WithError(err).Error("failed to connect to Qdrant")
		return nil, nil, nil, fmt.Errorf("did not connect: %w", err)
	}

	pointsClient := qdrant.NewPointsClient(conn)
	collectionsClient := qdrant.NewCollectionsClient(conn)

	// Simple health check
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = collectionsClient.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		logrus.WithError(err).Error("qdrant health check failed")
		conn.Close()
		return nil, nil, nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	logrus.Info("successfully connected to Qdrant")
	return pointsClient, collectionsClient, conn, nil
}

// EnsureCollectionExists creates the collection with the given vector size and
// a keyword index on paper_id. When recreate is set an existing collection is
// dropped first, since its vectors belong to an earlier embedding space.
func EnsureCollectionExists(ctx context.Context, collectionsClient qdrant.CollectionsClient, pointsClient qdrant.PointsClient, collectionName string, size uint64, recreate bool) error {
	log := logrus.WithFields(logrus.Fields{
		"collection_name": collectionName,
		"vector_size":     size,
	})

	_, err := collectionsClient.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: collectionName,
	})
	switch {
	case err == nil && !recreate:
		log.Info("collection already exists")
		return nil
	case err == nil:
		log.Info("dropping collection from a previous embedding space")
		if _, err := collectionsClient.Delete(ctx, &qdrant.DeleteCollection{CollectionName: collectionName}); err != nil {
			return fmt.Errorf("could not delete collection: %w", err)
		}
	default:
		if st, ok := status.FromError(err); !ok || st.Code() != codes.NotFound {
			return fmt.Errorf("could not get collection info: %w", err)
		}
	}

	log.Info("creating collection")
	wait := true
	_, err = collectionsClient.Create(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     size,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("could not create collection: %w", err)
	}

	_, err = pointsClient.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		FieldName:      "paper_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("could not create 'paper_id' payload index: %w", err)
	}

	log.Info("collection created successfully")
	return nil
}
