package http

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlay/internal/cache"
	"outlay/internal/core"
	"outlay/internal/services"
)

// Totals are cached per range; every write must show up on the next page view.
func TestDashboardSeesWritesThroughTotalsCache(t *testing.T) {
	totals := cache.NewLRUCache[[]core.CategoryTotal](8, time.Hour)
	ts := newTestServer(t, core.EditionStandard, services.WithTotalsCache(totals))

	body := ts.do(t, http.MethodGet, "/", nil, false).Body.String()
	assert.Contains(t, body, "No expenses in this period")
	assert.Equal(t, 1, totals.Size())

	form := url.Values{"description": {"Café"}, "amount": {"3.50"}, "date": {"2025-03-15"}, "category_id": {comida.ID}}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/expenses", form, true).Code)

	body = ts.do(t, http.MethodGet, "/", nil, false).Body.String()
	assert.Contains(t, body, "$3.50")
	assert.NotContains(t, body, "No expenses in this period")

	items, err := ts.svc.ListExpenses(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, "/expenses/"+itoa(items[0].ID), nil, true).Code)

	body = ts.do(t, http.MethodGet, "/", nil, false).Body.String()
	assert.Contains(t, body, "No expenses in this period")
}
