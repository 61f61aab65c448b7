// Package stactest provides an in-memory STAC API and object storage, for tests and local development.
package stactest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
)

// Paths of the endpoints served by the Server
const (
	StacPath    = "/stac"
	StoragePath = "/storage"
	PublicPath  = "/public"
)

// Server is an in-memory STAC API with an object storage.
// Objects are uploaded with PUT <StoragePath>/<key> and served with GET <PublicPath>/<key>.
type Server struct {
	// PageSize is the default number of items or collections per page
	PageSize int

	token string

	mu          sync.Mutex
	collections map[string]*common.Collection
	colOrder    []string
	items       map[string]*common.Item
	itemOrder   []string
	objects     map[string][]byte
	types       map[string]string
	uploads     []string
	itemWrites  int
	failStorage map[string]int
	failItems   int
}

// NewServer creates an empty server. If token is not empty, the requests to the STAC API and
// to the storage must be authenticated with "Bearer <token>".
func NewServer(token string) *Server {
	return &Server{
		PageSize:    10,
		token:       token,
		collections: map[string]*common.Collection{},
		items:       map[string]*common.Item{},
		objects:     map[string][]byte{},
		types:       map[string]string{},
		failStorage: map[string]int{},
	}
}

// Handler returns the http handler serving the API
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	stac := r.PathPrefix(StacPath).Subrouter()
	stac.Use(s.bearerAuthenticate)
	stac.HandleFunc("/collections", s.listCollections).Methods(http.MethodGet)
	stac.HandleFunc("/collections", s.createCollection).Methods(http.MethodPost)
	stac.HandleFunc("/collections/{collection}", s.getCollection).Methods(http.MethodGet)
	stac.HandleFunc("/collections/{collection}", s.updateCollection).Methods(http.MethodPatch)
	stac.HandleFunc("/collections/{collection}", s.deleteCollection).Methods(http.MethodDelete)
	stac.HandleFunc("/collections/{collection}/items", s.createItem).Methods(http.MethodPost)
	stac.HandleFunc("/collections/{collection}/items/{item}", s.getItem).Methods(http.MethodGet)
	stac.HandleFunc("/collections/{collection}/items/{item}", s.putItem).Methods(http.MethodPut)
	stac.HandleFunc("/collections/{collection}/items/{item}", s.updateItem).Methods(http.MethodPatch)
	stac.HandleFunc("/collections/{collection}/items/{item}", s.deleteItem).Methods(http.MethodDelete)
	stac.HandleFunc("/search", s.search).Methods(http.MethodPost)

	storage := r.PathPrefix(StoragePath).Subrouter()
	storage.Use(s.bearerAuthenticate)
	storage.HandleFunc("/{key:.+}", s.putObject).Methods(http.MethodPut)
	storage.HandleFunc("/{key:.+}", s.deleteObject).Methods(http.MethodDelete)

	r.HandleFunc(PublicPath+"/{key:.+}", s.getObject).Methods(http.MethodGet, http.MethodHead)
	return r
}

// FailStorage makes the uploads of the key fail with the status (0 to reset)
func (s *Server) FailStorage(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failStorage, key)
	} else {
		s.failStorage[key] = status
	}
}

// FailItems makes the creations and replacements of items fail with the status (0 to reset)
func (s *Server) FailItems(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failItems = status
}

// Uploads returns the keys of the successful uploads, in the order they were received
func (s *Server) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

// ContentType returns the Content-Type the object was uploaded with
func (s *Server) ContentType(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.types[key]
}

// Object returns the content of the stored object
func (s *Server) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

// PutObject stores the object without going through the storage API
func (s *Server) PutObject(key string, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
}

// ItemWrites returns the number of successful item creations and replacements
func (s *Server) ItemWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemWrites
}

// Item returns a copy of the stored item
func (s *Server) Item(collectionID, itemID string) (*common.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemKey(collectionID, itemID)]
	if !ok {
		return nil, false
	}
	c, err := item.Clone()
	return c, err == nil
}

// AddCollection stores the collection without going through the API
func (s *Server) AddCollection(collection *common.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCollection(collection)
}

// AddItem stores the item without going through the API
func (s *Server) AddItem(item *common.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putItemLocked(item)
}

func itemKey(collectionID, itemID string) string {
	return collectionID + "/" + itemID
}

func (s *Server) bearerAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			token := r.Header.Get("Authorization")
			switch {
			case token == "":
				writeError(w, http.StatusUnauthorized, "token not found")
				return
			case !strings.HasPrefix(token, "Bearer "):
				writeError(w, http.StatusUnauthorized, `missing "Bearer " prefix`)
				return
			case strings.TrimPrefix(token, "Bearer ") != s.token:
				writeError(w, http.StatusForbidden, "invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string][]service.ErrorDetail{
		"errors": {{
			Message: fmt.Sprintf(format, args...),
			Type:    strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"),
			TraceID: uuid.New().String(),
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: %v", err)
		return false
	}
	return true
}

// pageBounds returns the bounds of the page defined by the limit and cursor parameters
func (s *Server) pageBounds(r *http.Request, total int) (int, int, error) {
	limit := s.PageSize
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		if limit, err = strconv.Atoi(l); err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %s", l)
		}
	}
	start := 0
	if c := r.URL.Query().Get("cursor"); c != "" {
		var err error
		if start, err = strconv.Atoi(c); err != nil || start < 0 {
			return 0, 0, fmt.Errorf("invalid cursor %s", c)
		}
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end, nil
}

func nextLinks(r *http.Request, end, total int) []common.Link {
	links := []common.Link{}
	if end < total {
		u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path}
		q := r.URL.Query()
		q.Set("cursor", strconv.Itoa(end))
		u.RawQuery = q.Encode()
		links = append(links, common.Link{Href: u.String(), Rel: common.RelNext, Method: r.Method})
	}
	return links
}

/********** Collections **********/

func (s *Server) putCollection(collection *common.Collection) {
	if _, ok := s.collections[collection.ID]; !ok {
		s.colOrder = append(s.colOrder, collection.ID)
	}
	s.collections[collection.ID] = collection
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end, err := s.pageBounds(r, len(s.colOrder))
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	collections := make([]*common.Collection, 0, end-start)
	for _, id := range s.colOrder[start:end] {
		collections = append(collections, s.collections[id])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collections": collections,
		"links":       nextLinks(r, end, len(s.colOrder)),
	})
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var collection common.Collection
	if !decode(w, r, &collection) {
		return
	}
	if collection.ID == "" {
		writeError(w, http.StatusBadRequest, "missing collection id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection.ID]; ok {
		writeError(w, http.StatusConflict, "collection %s already exists", collection.ID)
		return
	}
	s.putCollection(&collection)
	writeJSON(w, http.StatusCreated, &collection)
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	s.mu.Lock()
	defer s.mu.Unlock()
	collection, ok := s.collections[id]
	if !ok {
		writeError(w, http.StatusNotFound, "collection %s not found", id)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (s *Server) updateCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	var update common.CollectionUpdate
	if !decode(w, r, &update) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[id]
	if !ok {
		writeError(w, http.StatusNotFound, "collection %s not found", id)
		return
	}
	if update.Title != "" {
		c.Title = update.Title
	}
	if update.Description != "" {
		c.Description = update.Description
	}
	if update.Keywords != nil {
		c.Keywords = update.Keywords
	}
	if update.License != "" {
		c.License = update.License
	}
	if update.Providers != nil {
		c.Providers = update.Providers
	}
	if update.Extent != nil {
		c.Extent = *update.Extent
	}
	if update.Summaries != nil {
		c.Summaries = update.Summaries
	}
	if update.Links != nil {
		c.Links = update.Links
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		writeError(w, http.StatusNotFound, "collection %s not found", id)
		return
	}
	delete(s.collections, id)
	s.colOrder = remove(s.colOrder, id)
	w.WriteHeader(http.StatusNoContent)
}

/********** Items **********/

func (s *Server) putItemLocked(item *common.Item) {
	key := itemKey(item.Collection, item.ID)
	if _, ok := s.items[key]; !ok {
		s.itemOrder = append(s.itemOrder, key)
	}
	s.items[key] = item
}

// writeItem checks and stores the item. Returns false if an error was written.
func (s *Server) writeItem(w http.ResponseWriter, r *http.Request, item *common.Item, replace bool) bool {
	collectionID := mux.Vars(r)["collection"]
	if item.Collection == "" {
		item.Collection = collectionID
	}
	if item.Collection != collectionID {
		writeError(w, http.StatusBadRequest, "item collection %s does not match %s", item.Collection, collectionID)
		return false
	}
	if itemID, ok := mux.Vars(r)["item"]; ok && item.ID != itemID {
		writeError(w, http.StatusBadRequest, "item id %s does not match %s", item.ID, itemID)
		return false
	}
	if item.ID == "" {
		writeError(w, http.StatusBadRequest, "missing item id")
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failItems != 0 {
		writeError(w, s.failItems, "item %s rejected", item.ID)
		return false
	}
	if _, ok := s.collections[collectionID]; !ok {
		writeError(w, http.StatusNotFound, "collection %s not found", collectionID)
		return false
	}
	if _, ok := s.items[itemKey(collectionID, item.ID)]; ok && !replace {
		writeError(w, http.StatusConflict, "item %s already exists in %s", item.ID, collectionID)
		return false
	}
	s.putItemLocked(item)
	s.itemWrites++
	return true
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var item common.Item
	if decode(w, r, &item) && s.writeItem(w, r, &item, false) {
		writeJSON(w, http.StatusCreated, &item)
	}
}

func (s *Server) putItem(w http.ResponseWriter, r *http.Request) {
	var item common.Item
	if decode(w, r, &item) && s.writeItem(w, r, &item, true) {
		writeJSON(w, http.StatusOK, &item)
	}
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemKey(vars["collection"], vars["item"])]
	if !ok {
		writeError(w, http.StatusNotFound, "item %s not found in %s", vars["item"], vars["collection"])
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var update common.ItemUpdate
	if !decode(w, r, &update) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemKey(vars["collection"], vars["item"])]
	if !ok {
		writeError(w, http.StatusNotFound, "item %s not found in %s", vars["item"], vars["collection"])
		return
	}
	if update.StacExtensions != nil {
		item.StacExtensions = update.StacExtensions
	}
	if update.Geometry != nil {
		item.Geometry = update.Geometry
	}
	if update.BBox != nil {
		item.BBox = update.BBox
	}
	for k, v := range update.Properties {
		item.SetProperty(k, v)
	}
	if update.Assets != nil {
		item.Assets = *update.Assets
	}
	if update.Links != nil {
		item.Links = update.Links
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	key := itemKey(vars["collection"], vars["item"])
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		writeError(w, http.StatusNotFound, "item %s not found in %s", vars["item"], vars["collection"])
		return
	}
	delete(s.items, key)
	s.itemOrder = remove(s.itemOrder, key)
	w.WriteHeader(http.StatusNoContent)
}

/********** Search **********/

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var params common.SearchParameters
	if !decode(w, r, &params) {
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []*common.Item
	for _, key := range s.itemOrder {
		if item := s.items[key]; match(item, params) {
			matches = append(matches, item)
		}
	}
	start, end, err := s.pageBounds(r, len(matches))
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	total := len(matches)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":          "FeatureCollection",
		"features":      append([]*common.Item{}, matches[start:end]...),
		"links":         nextLinks(r, end, total),
		"numberMatched": total,
	})
}

func match(item *common.Item, params common.SearchParameters) bool {
	if len(params.Collections) > 0 && !service.NewStringSet(params.Collections...).Exists(item.Collection) {
		return false
	}
	if len(params.IDs) > 0 && !service.NewStringSet(params.IDs...).Exists(item.ID) {
		return false
	}
	if len(params.BBox) == 4 && len(item.BBox) >= 4 {
		n := len(item.BBox) / 2
		if item.BBox[0] > params.BBox[2] || item.BBox[n] < params.BBox[0] || item.BBox[1] > params.BBox[3] || item.BBox[n+1] < params.BBox[1] {
			return false
		}
	}
	for property, ops := range params.Query {
		value := fmt.Sprint(item.Properties[property])
		if item.Properties[property] == nil {
			value = ""
		}
		for op, expected := range ops {
			if !matchOp(op, value, expected) {
				return false
			}
		}
	}
	return true
}

// matchOp compares the values as strings (ISO dates are ordered lexicographically)
func matchOp(op, value string, expected interface{}) bool {
	switch op {
	case "eq":
		return value == fmt.Sprint(expected)
	case "neq":
		return value != fmt.Sprint(expected)
	case "in":
		values, ok := expected.([]interface{})
		if !ok {
			return false
		}
		for _, v := range values {
			if fmt.Sprint(v) == value {
				return true
			}
		}
		return false
	case "gte":
		return expected == nil || value >= fmt.Sprint(expected)
	case "lte":
		return expected == nil || value <= fmt.Sprint(expected)
	}
	return true
}

/********** Storage **********/

func (s *Server) putObject(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.mu.Lock()
	status := s.failStorage[key]
	s.mu.Unlock()
	if status != 0 {
		writeError(w, status, "upload of %s failed", key)
		return
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: %v", err)
		return
	}
	s.mu.Lock()
	s.objects[key] = b
	s.types[key] = r.Header.Get("Content-Type")
	s.uploads = append(s.uploads, key)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		writeError(w, http.StatusNotFound, "object %s not found", key)
		return
	}
	delete(s.objects, key)
	delete(s.types, key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.mu.Lock()
	b, ok := s.objects[key]
	contentType := s.types[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "object %s not found", key)
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Write(b)
}

// Keys returns the keys of the stored objects, sorted
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func remove(list []string, s string) []string {
	for i, e := range list {
		if e == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
