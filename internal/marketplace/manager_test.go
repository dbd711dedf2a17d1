package marketplace

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/bestdeal/config"
	"github.com/dealmungchi/bestdeal/pkg/errors"
)

func newTestManager(delegate Delegate) *Manager {
	return NewManager(2,
		NewClient(NewAmazonAdapter("com", 20), delegate, nil, time.Minute),
		NewClient(NewTemuAdapter(20), delegate, nil, time.Minute),
		NewClient(NewAlibabaAdapter(20), delegate, nil, time.Minute),
	)
}

func TestManagerSearchOneUnknownSource(t *testing.T) {
	delegate := NewMockDelegate()
	manager := newTestManager(delegate)

	products, err := manager.SearchOne(context.Background(), "ebay", "x", "")
	assert.Nil(t, products)
	assert.True(t, errors.IsUnknownSource(err))
	assert.Empty(t, delegate.Calls())
}

func TestManagerSearchOneStampsDisplayName(t *testing.T) {
	delegate := NewMockDelegate().WithItems(temuActor,
		RawItem{"name": "Mug", "url": "https://www.temu.com/mug.html"},
	)
	manager := newTestManager(delegate)

	products, err := manager.SearchOne(context.Background(), "temu", "mug", "")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Temu", products[0].Marketplace)
}

func TestManagerSearchAllIsolatesFailures(t *testing.T) {
	delegate := NewMockDelegate().
		WithItems(amazonActor,
			RawItem{"title": "A1", "url": "https://www.amazon.com/dp/1"},
			RawItem{"title": "A2", "url": "https://www.amazon.com/dp/2"},
		).
		WithError(temuActor, stderrors.New("actor crashed")).
		WithItems(alibabaActor,
			RawItem{"title": "B1", "detailUrl": "https://www.alibaba.com/1.html"},
		)
	manager := newTestManager(delegate)

	results := manager.SearchAll(context.Background(), "cable")
	require.Len(t, results, 3)
	assert.Len(t, results["amazon"], 2)
	assert.NotNil(t, results["temu"])
	assert.Empty(t, results["temu"])
	assert.Len(t, results["alibaba"], 1)
	assert.Equal(t, "Alibaba", results["alibaba"][0].Marketplace)
	assert.Len(t, delegate.Calls(), 3)
}

func TestManagerSearchAllDetailedReportsFailures(t *testing.T) {
	cause := stderrors.New("actor crashed")
	delegate := NewMockDelegate().
		WithItems(amazonActor, RawItem{"title": "A1", "url": "https://www.amazon.com/dp/1"}).
		WithError(temuActor, cause)
	manager := newTestManager(delegate)

	results, failures := manager.SearchAllDetailed(context.Background(), "cable")
	assert.Len(t, results, 3)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures["temu"], cause)
	assert.Equal(t, errors.ErrorTypeDelegate, errors.TypeOf(failures["temu"]))
	assert.Empty(t, results["alibaba"])
}

func TestManagerSearchAllNoSources(t *testing.T) {
	manager := NewManager(0)
	assert.Empty(t, manager.SearchAll(context.Background(), "x"))
}

func TestManagerRegistry(t *testing.T) {
	delegate := NewMockDelegate()
	manager := NewManager(0,
		NewClient(NewJumiaAdapter("kenya", 5), delegate, nil, 0),
		NewClient(NewAmazonAdapter("com", 5), delegate, nil, 0),
		NewClient(NewJumiaAdapter("ghana", 5), delegate, nil, 0),
	)

	assert.Equal(t, []string{"jumia", "amazon"}, manager.Sources())
	assert.True(t, manager.SupportsRegion("jumia"))
	assert.False(t, manager.SupportsRegion("ebay"))

	// duplicates keep the first registration
	_, err := manager.SearchOne(context.Background(), "jumia", "kettle", "")
	require.NoError(t, err)
	assert.Equal(t, "kenya", delegate.Calls()[0].input["country"])
}

func TestManagerDisplayName(t *testing.T) {
	manager := NewManager(0)
	assert.Equal(t, "AliExpress", manager.DisplayName("aliexpress"))
	assert.Equal(t, "Amazon", manager.DisplayName("amazon"))
	assert.Equal(t, "Ebay", manager.DisplayName("ebay"))
	assert.Equal(t, "Mercado Libre", manager.DisplayName("mercado libre"))
}

func TestNewManagerFromConfig(t *testing.T) {
	cfg := &config.Config{
		Sources:           []string{"amazon", "AliExpress"},
		MaxItems:          10,
		AmazonRegion:      "de",
		ShipTo:            "de",
		SearchConcurrency: 2,
	}

	manager, err := NewManagerFromConfig(cfg, NewMockDelegate(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"amazon", "aliexpress"}, manager.Sources())

	cfg.Sources = []string{"amazon", "ebay"}
	_, err = NewManagerFromConfig(cfg, NewMockDelegate(), nil)
	assert.True(t, errors.IsUnknownSource(err))
}
