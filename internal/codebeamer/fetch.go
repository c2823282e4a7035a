package codebeamer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// GetSingleItem fetches one item's head revision.
func (c *Client) GetSingleItem(ctx context.Context, itemID int) (Item, error) {
	if itemID < 1 {
		return nil, fmt.Errorf("item id must be positive, got %d", itemID)
	}
	var item Item
	if err := c.getJSON(ctx, fmt.Sprintf("%s/items/%d", c.base, itemID), &item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetManyItems fetches every item in ids with one filtered query, walking
// pages until the server-declared total is reached. The ids are sorted so
// the filter expression and result order are deterministic.
func (c *Client) GetManyItems(ctx context.Context, ids []int) ([]Item, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no item ids to fetch")
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for _, id := range sorted {
		parts = append(parts, strconv.Itoa(id))
	}
	queryString := url.QueryEscape(fmt.Sprintf("item.id IN (%s)", strings.Join(parts, ",")))

	var out []Item
	total := -1
	for page := 1; total < 0 || len(out) < total; page++ {
		pageURL := fmt.Sprintf("%s/items/query?page=%d&pageSize=%d&queryString=%s",
			c.base, page, c.pageSize, queryString)
		c.log.Debugf("fetching page %d of item query", page)
		var data struct {
			Page  int    `json:"page"`
			Total int    `json:"total"`
			Items []Item `json:"items"`
		}
		if err := c.getJSON(ctx, pageURL, &data); err != nil {
			return nil, err
		}
		if page == 1 {
			total = data.Total
		} else if data.Total != total {
			return nil, fmt.Errorf("total changed from %d to %d on page %d of %s", total, data.Total, page, pageURL)
		}
		if len(data.Items) == 0 && len(out) < total {
			return nil, fmt.Errorf("page %d of %s is empty with %d of %d items fetched", page, pageURL, len(out), total)
		}
		out = append(out, data.Items...)
	}
	if len(out) != total {
		return nil, fmt.Errorf("fetched %d items but server declared %d", len(out), total)
	}
	return out, nil
}

// GetQueryItems fetches every item matched by a saved server-side query,
// validating the response shape and page sequencing as it goes.
func (c *Client) GetQueryItems(ctx context.Context, queryID int) ([]Item, error) {
	var out []Item
	total := -1
	for page := 1; total < 0 || len(out) < total; page++ {
		c.log.Infof("Fetching page %d of query...", page)
		pageURL := fmt.Sprintf("%s/reports/%d/items?page=%d&pageSize=%d",
			c.base, queryID, page, c.pageSize)
		var body json.RawMessage
		if err := c.getJSON(ctx, pageURL, &body); err != nil {
			return nil, err
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("decoding response from %s: %w", pageURL, err)
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("unexpected response shape from %s: %d top-level fields, want 4", pageURL, len(fields))
		}

		var data struct {
			Page  int `json:"page"`
			Total int `json:"total"`
			Items []struct {
				Item Item `json:"item"`
			} `json:"items"`
		}
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("decoding response from %s: %w", pageURL, err)
		}

		if page == 1 && len(data.Items) == 0 {
			return nil, fmt.Errorf("query %d generates no items; check the id is correct and that you have permission to access it (try %s manually)",
				queryID, pageURL)
		}
		if data.Page != page {
			return nil, fmt.Errorf("server returned page %d of %s, expected page %d", data.Page, pageURL, page)
		}
		if page == 1 {
			total = data.Total
		} else if data.Total != total {
			return nil, fmt.Errorf("total changed from %d to %d on page %d of %s", total, data.Total, page, pageURL)
		}
		if len(data.Items) == 0 && len(out) < total {
			return nil, fmt.Errorf("page %d of %s is empty with %d of %d items fetched", page, pageURL, len(out), total)
		}
		for _, entry := range data.Items {
			out = append(out, entry.Item)
		}
	}
	if len(out) != total {
		return nil, fmt.Errorf("fetched %d items but server declared %d", len(out), total)
	}
	return out, nil
}
