// Package search maintains and queries the catalog index in Elasticsearch.
// Indexing is best effort: catalog writes go to the relational store first
// and index failures are logged, not surfaced to the caller.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Tombunzel/HarmonApp/internal/models"
)

// Doc is the shape of a catalog entry in the index, covering both tracks and
// albums.
type Doc struct {
	ID          uint    `json:"id"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	ArtistID    uint    `json:"artist_id"`
	ReleaseDate string  `json:"release_date"`
	Price       float64 `json:"price"`
}

func TrackDoc(t *models.Track) Doc {
	return Doc{
		ID:          t.ID,
		Type:        models.ItemTypeTrack,
		Name:        t.Name,
		ArtistID:    t.ArtistID,
		ReleaseDate: t.ReleaseDate,
		Price:       t.Price,
	}
}

func AlbumDoc(a *models.Album) Doc {
	return Doc{
		ID:          a.ID,
		Type:        models.ItemTypeAlbum,
		Name:        a.Name,
		ArtistID:    a.ArtistID,
		ReleaseDate: a.ReleaseDate,
		Price:       a.Price,
	}
}

func docID(d Doc) string {
	return d.Type + "-" + strconv.FormatUint(uint64(d.ID), 10)
}

func Index(ctx context.Context, es *elasticsearch.Client, index string, doc Doc) error {
	if es == nil {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("index %s: %w", docID(doc), err)
	}

	res, err := es.Index(
		index,
		bytes.NewReader(data),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(docID(doc)),
	)
	if err != nil {
		return fmt.Errorf("index %s: %w", docID(doc), err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s: %s", docID(doc), res.Status())
	}
	return nil
}

func Delete(ctx context.Context, es *elasticsearch.Client, index, itemType string, id uint) error {
	if es == nil {
		return nil
	}
	res, err := es.Delete(
		index,
		itemType+"-"+strconv.FormatUint(uint64(id), 10),
		es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", itemType, id, err)
	}
	defer res.Body.Close()
	return nil
}

func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []Doc, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "type"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Doc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]Doc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}
