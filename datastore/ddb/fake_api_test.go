/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory table keyed by PK and SK. It understands the
// condition and update expressions DataStore generates. Query returns the
// queued pages in order.
type fakeAPI struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pages    []*sdk.QueryOutput
	queryErr []error

	puts    []*sdk.PutItemInput
	updates []*sdk.UpdateItemInput
	queries []*sdk.QueryInput
}

var _ API = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(key map[string]types.AttributeValue) string {
	pk, _ := key[AttrPK].(*types.AttributeValueMemberS)
	sk, _ := key[AttrSK].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return ""
	}
	return pk.Value + "|" + sk.Value
}

func (f *fakeAPI) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemKey(in.Key)]
	if !ok {
		return &sdk.GetItemOutput{}, nil
	}
	return &sdk.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	k := itemKey(in.Item)
	if _, exists := f.items[k]; exists && in.ConditionExpression != nil && *in.ConditionExpression == "attribute_not_exists(PK)" {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("exists")}
	}
	f.items[k] = copyItem(in.Item)
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)
	item, exists := f.items[itemKey(in.Key)]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("missing")}
	}

	expr := *in.UpdateExpression
	var setPart, removePart string
	if i := strings.Index(expr, "REMOVE "); i >= 0 {
		removePart = expr[i+len("REMOVE "):]
		expr = strings.TrimSpace(expr[:i])
	}
	setPart = strings.TrimPrefix(expr, "SET ")

	if setPart != "" {
		for _, clause := range strings.Split(setPart, ", ") {
			parts := strings.SplitN(clause, " = ", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("bad clause %q", clause)
			}
			item[in.ExpressionAttributeNames[parts[0]]] = in.ExpressionAttributeValues[parts[1]]
		}
	}
	if removePart != "" {
		for _, name := range strings.Split(removePart, ", ") {
			delete(item, in.ExpressionAttributeNames[name])
		}
	}
	return &sdk.UpdateItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Key)
	if _, exists := f.items[k]; !exists && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("missing")}
	}
	delete(f.items, k)
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, in)
	if len(f.queryErr) > 0 {
		err := f.queryErr[0]
		f.queryErr = f.queryErr[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.pages) == 0 {
		return &sdk.QueryOutput{}, nil
	}
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

func (f *fakeAPI) item(pk, sk string) (map[string]types.AttributeValue, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[pk+"|"+sk]
	return item, ok
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
