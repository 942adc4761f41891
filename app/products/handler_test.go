package products

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuportal/inventory/app/api"
	"github.com/skuportal/inventory/app/catalog"
	"github.com/skuportal/inventory/inventory"
	"github.com/skuportal/inventory/models"
)

// --- Mock Service ---

type MockProductService struct {
	Err error

	// Fields to capture call arguments
	calls          []string
	lastID         uint
	lastProduct    inventory.ProductInput
	lastVariant    inventory.VariantInput
	lastUploads    map[string]string
	lastBulkUpdate inventory.BulkUpdate
}

func (m *MockProductService) record(name string, id uint, images []inventory.Upload) {
	m.calls = append(m.calls, name)
	m.lastID = id
	if images != nil {
		m.lastUploads = map[string]string{}
		for _, img := range images {
			body, _ := io.ReadAll(img.Body)
			m.lastUploads[img.Filename] = string(body)
		}
	}
}

func (m *MockProductService) CreateProduct(ctx context.Context, in inventory.ProductInput, vin inventory.VariantInput, images []inventory.Upload) (*models.Product, error) {
	m.record("CreateProduct", 0, images)
	m.lastProduct, m.lastVariant = in, vin
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Product{ID: 1, MainSKU: "001", Name: in.Name, Variants: []models.Variant{{ID: 1, VariantSKU: "CLOT-NA-001"}}}, nil
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id uint, in inventory.ProductInput) (*models.Product, error) {
	m.record("UpdateProduct", id, nil)
	m.lastProduct = in
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Product{ID: id, MainSKU: in.MainSKU, Name: in.Name}, nil
}

func (m *MockProductService) DeleteProduct(ctx context.Context, id uint) error {
	m.record("DeleteProduct", id, nil)
	return m.Err
}

func (m *MockProductService) ArchiveProduct(ctx context.Context, id uint) error {
	m.record("ArchiveProduct", id, nil)
	return m.Err
}

func (m *MockProductService) UnarchiveProduct(ctx context.Context, id uint) error {
	m.record("UnarchiveProduct", id, nil)
	return m.Err
}

func (m *MockProductService) CreateVariant(ctx context.Context, productID uint, vin inventory.VariantInput, images []inventory.Upload) (*models.Variant, error) {
	m.record("CreateVariant", productID, images)
	m.lastVariant = vin
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Variant{ID: 9, ProductID: productID, VariantSKU: "CLOT-L-001", Size: vin.Size}, nil
}

func (m *MockProductService) UpdateVariant(ctx context.Context, id uint, vin inventory.VariantInput) (*models.Variant, error) {
	m.record("UpdateVariant", id, nil)
	m.lastVariant = vin
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Variant{ID: id, VariantSKU: vin.VariantSKU, Price: vin.Price}, nil
}

func (m *MockProductService) DeleteVariant(ctx context.Context, id uint) error {
	m.record("DeleteVariant", id, nil)
	return m.Err
}

func (m *MockProductService) AttachImages(ctx context.Context, variantID uint, images []inventory.Upload) ([]models.ProductImage, error) {
	m.record("AttachImages", variantID, images)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.ProductImage, len(images))
	for i := range images {
		out[i] = models.ProductImage{VariantID: variantID, Path: "products/001/" + images[i].Filename}
	}
	return out, nil
}

func (m *MockProductService) BulkUpdate(ctx context.Context, u inventory.BulkUpdate) (int64, error) {
	m.record("BulkUpdate", 0, nil)
	m.lastBulkUpdate = u
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(u.ProductIDs)), nil
}

// --- Helpers ---

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, url, data string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != "" {
		require.NoError(t, mw.WriteField("data", data))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// --- Tests ---

func TestHandleCreate(t *testing.T) {
	testCases := []struct {
		name               string
		request            func(t *testing.T) *http.Request
		mockSetup          func() *MockProductService
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockProductService)
	}{
		{
			name: "JSON body",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/products",
					`{"name":"Hoodie","brand":"Nike","variant":{"size":"M","price":"20","cost":5,"qty":2,"date":"05/03/2024"}}`)
			},
			mockSetup:          func() *MockProductService { return &MockProductService{} },
			expectedStatusCode: http.StatusCreated,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockProductService) {
				var resp catalog.Product
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "001", resp.MainSKU)
				assert.Len(t, resp.Variants, 1)

				assert.Equal(t, "Hoodie", svc.lastProduct.Name)
				assert.Equal(t, "Nike", svc.lastProduct.Brand)
				assert.Equal(t, "M", svc.lastVariant.Size)
				assert.True(t, svc.lastVariant.Price.Equal(decimal.NewFromInt(20)))
				assert.True(t, svc.lastVariant.Cost.Equal(decimal.NewFromInt(5)))
				require.NotNil(t, svc.lastVariant.Qty)
				assert.Equal(t, 2, *svc.lastVariant.Qty)
				require.NotNil(t, svc.lastVariant.Date)
				assert.Equal(t, "2024-03-05", svc.lastVariant.Date.Format("2006-01-02"))
				assert.Nil(t, svc.lastUploads)
			},
		},
		{
			name: "Multipart with images",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/products", `{"name":"Hoodie","variant":{"date":"2024-03-05"}}`,
					map[string]string{"front.jpg": "front-bytes", "back.png": "back-bytes"})
			},
			mockSetup:          func() *MockProductService { return &MockProductService{} },
			expectedStatusCode: http.StatusCreated,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockProductService) {
				assert.Equal(t, "Hoodie", svc.lastProduct.Name)
				assert.Equal(t, map[string]string{"front.jpg": "front-bytes", "back.png": "back-bytes"}, svc.lastUploads)
			},
		},
		{
			name: "Missing name",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/products", `{"variant":{"price":-3}}`)
			},
			mockSetup:          func() *MockProductService { return &MockProductService{} },
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockProductService) {
				resp := decodeError(t, rec)
				assert.Equal(t, "is required", resp.Fields["name"])
				assert.Equal(t, "must be at least 0", resp.Fields["price"])
				assert.Empty(t, svc.calls)
			},
		},
		{
			name: "Unparseable date",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/products", `{"name":"Hoodie","variant":{"date":"March 5th"}}`)
			},
			mockSetup:          func() *MockProductService { return &MockProductService{} },
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockProductService) {
				assert.Contains(t, decodeError(t, rec).Fields, "date")
				assert.Empty(t, svc.calls)
			},
		},
		{
			name: "Malformed JSON",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/products", `{"name":`)
			},
			mockSetup:          func() *MockProductService { return &MockProductService{} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name: "Duplicate SKU from service",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/products", `{"name":"Hoodie","main_sku":"001"}`)
			},
			mockSetup: func() *MockProductService {
				return &MockProductService{Err: &inventory.ValidationError{Fields: map[string]string{"main_sku": "sku already in use"}}}
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockProductService) {
				assert.Equal(t, "sku already in use", decodeError(t, rec).Fields["main_sku"])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			svc := tc.mockSetup()
			handler := NewProductHandler(svc, 0, nil)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleCreate(rec, tc.request(t))

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec, svc)
			}
		})
	}
}

func TestHandleIDRoutes(t *testing.T) {
	testCases := []struct {
		name               string
		id                 string
		err                error
		handle             func(h *ProductHandler) http.HandlerFunc
		expectedCall       string
		expectedStatusCode int
	}{
		{"Delete product", "4", nil, func(h *ProductHandler) http.HandlerFunc { return h.HandleDelete }, "DeleteProduct", http.StatusNoContent},
		{"Archive product", "4", nil, func(h *ProductHandler) http.HandlerFunc { return h.HandleArchive }, "ArchiveProduct", http.StatusNoContent},
		{"Unarchive product", "4", nil, func(h *ProductHandler) http.HandlerFunc { return h.HandleUnarchive }, "UnarchiveProduct", http.StatusNoContent},
		{"Delete variant", "4", nil, func(h *ProductHandler) http.HandlerFunc { return h.HandleDeleteVariant }, "DeleteVariant", http.StatusNoContent},
		{"Missing product", "4", models.ErrProductNotFound, func(h *ProductHandler) http.HandlerFunc { return h.HandleArchive }, "ArchiveProduct", http.StatusNotFound},
		{"Missing variant", "4", models.ErrVariantNotFound, func(h *ProductHandler) http.HandlerFunc { return h.HandleDeleteVariant }, "DeleteVariant", http.StatusNotFound},
		{"Invalid id", "abc", nil, func(h *ProductHandler) http.HandlerFunc { return h.HandleDelete }, "", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockProductService{Err: tc.err}
			handler := NewProductHandler(svc, 0, nil)
			req := httptest.NewRequest(http.MethodPost, "/products/"+tc.id, nil)
			req.SetPathValue("id", tc.id)
			rec := httptest.NewRecorder()

			tc.handle(handler)(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.expectedCall == "" {
				assert.Empty(t, svc.calls)
				return
			}
			assert.Equal(t, []string{tc.expectedCall}, svc.calls)
			assert.Equal(t, uint(4), svc.lastID)
		})
	}
}

func TestHandleUpdate(t *testing.T) {
	svc := &MockProductService{}
	handler := NewProductHandler(svc, 0, nil)
	req := jsonRequest(http.MethodPut, "/products/3", `{"main_sku":"010","name":"Zip Hoodie"}`)
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()

	handler.HandleUpdate(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(3), svc.lastID)
	assert.Equal(t, inventory.ProductInput{MainSKU: "010", Name: "Zip Hoodie"}, svc.lastProduct)
	var resp catalog.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "010", resp.MainSKU)
}

func TestHandleCreateVariant(t *testing.T) {
	svc := &MockProductService{}
	handler := NewProductHandler(svc, 0, nil)
	req := jsonRequest(http.MethodPost, "/products/2/variants", `{"size":"L","status":"Listed"}`)
	req.SetPathValue("id", "2")
	rec := httptest.NewRecorder()

	handler.HandleCreateVariant(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint(2), svc.lastID)
	assert.Equal(t, "Listed", svc.lastVariant.Status)
	assert.Nil(t, svc.lastVariant.Date)
	assert.Nil(t, svc.lastVariant.Qty)
	var resp catalog.Variant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "CLOT-L-001", resp.VariantSKU)
}

func TestHandleUpdateVariant(t *testing.T) {
	svc := &MockProductService{}
	handler := NewProductHandler(svc, 0, nil)
	req := jsonRequest(http.MethodPut, "/variants/7", `{"variant_sku":"hood-m-001","price":"12.5","size":"`+strings.Repeat("x", 41)+`"}`)
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()

	handler.HandleUpdateVariant(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "must be at most 40", decodeError(t, rec).Fields["size"])
	assert.Empty(t, svc.calls)

	req = jsonRequest(http.MethodPut, "/variants/7", `{"variant_sku":"hood-m-001","price":"12.5"}`)
	req.SetPathValue("id", "7")
	rec = httptest.NewRecorder()

	handler.HandleUpdateVariant(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), svc.lastID)
	var resp catalog.Variant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 12.5, resp.Price)
}

func TestHandleAttachImages(t *testing.T) {
	t.Run("Stores uploads", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewProductHandler(svc, 0, nil)
		req := multipartRequest(t, "/variants/5/images", "", map[string]string{"a.jpg": "aaa"})
		req.SetPathValue("id", "5")
		rec := httptest.NewRecorder()

		handler.HandleAttachImages(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, uint(5), svc.lastID)
		assert.Equal(t, map[string]string{"a.jpg": "aaa"}, svc.lastUploads)
		var resp map[string][]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, []string{"/media/products/001/a.jpg"}, resp["images"])
	})

	t.Run("Requires multipart", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewProductHandler(svc, 0, nil)
		req := jsonRequest(http.MethodPost, "/variants/5/images", `{}`)
		req.SetPathValue("id", "5")
		rec := httptest.NewRecorder()

		handler.HandleAttachImages(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.calls)
	})

	t.Run("Requires at least one image", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewProductHandler(svc, 0, nil)
		req := multipartRequest(t, "/variants/5/images", "ignored", nil)
		req.SetPathValue("id", "5")
		rec := httptest.NewRecorder()

		handler.HandleAttachImages(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeError(t, rec).Fields, "images")
	})

	t.Run("Body over the limit", func(t *testing.T) {
		svc := &MockProductService{}
		handler := NewProductHandler(svc, 64, nil)
		req := multipartRequest(t, "/variants/5/images", "", map[string]string{"a.jpg": strings.Repeat("x", 1024)})
		req.SetPathValue("id", "5")
		rec := httptest.NewRecorder()

		handler.HandleAttachImages(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.calls)
	})
}

func TestHandleBulkUpdate(t *testing.T) {
	testCases := []struct {
		name               string
		body               string
		expectedStatusCode int
		expectedUpdate     *inventory.BulkUpdate
	}{
		{
			name:               "Applies changes",
			body:               `{"ids":[1,2,3],"status":"Sold","location":"Garage"}`,
			expectedStatusCode: http.StatusOK,
			expectedUpdate:     &inventory.BulkUpdate{ProductIDs: []uint{1, 2, 3}, Status: "Sold", Location: "Garage"},
		},
		{
			name:               "No ids",
			body:               `{"ids":[],"status":"Sold"}`,
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &MockProductService{}
			handler := NewProductHandler(svc, 0, nil)
			rec := httptest.NewRecorder()

			handler.HandleBulkUpdate(rec, jsonRequest(http.MethodPost, "/bulk-update", tc.body))

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.expectedUpdate == nil {
				assert.Empty(t, svc.calls)
				return
			}
			assert.Equal(t, *tc.expectedUpdate, svc.lastBulkUpdate)
			var resp map[string]int64
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, int64(3), resp["updated"])
		})
	}
}
