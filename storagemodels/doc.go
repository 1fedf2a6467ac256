/*
Package storagemodels defines the data structures shared by entitykit datastores.

Key Types:

QueryParams:
Parameters for querying the datastore:

	params := &QueryParams{
	    EntityType:             "Person",
	    KeyConditionExpression: "GSI1PK = :pk",
	    ExpressionAttributeValues: map[string]types.AttributeValue{
	        ":pk": &types.AttributeValueMemberS{Value: "NICK#flash"},
	    },
	    IndexName: aws.String("GSI1"),
	    Limit:     aws.Int32(100),
	}

StreamResult:
Results from streaming operations with metadata:

	type StreamResult struct {
	    Item  object.Object                   // Clean reference built by the factory
	    Raw   map[string]types.AttributeValue // Raw DynamoDB attributes
	    Error error                           // Item-specific error, if any
	    Meta  StreamMeta                      // Metadata about this item
	}

StreamOptions:
Configuration for streaming behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}

These types provide a consistent interface across different storage implementations.
*/
package storagemodels
