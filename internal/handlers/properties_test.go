package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekrypto/hkt-api/internal/handlers"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
)

func testProperty() *models.Property {
	return &models.Property{
		ID:            "cap-cana-villa",
		Name:          "Luxury Villa Cap Cana",
		Location:      "Cap Cana, Dominican Republic",
		PricePerNight: "285.00",
		TotalShares:   52,
		SharePrice:    "3750.00",
		MaxGuests:     8,
		Bedrooms:      4,
		Bathrooms:     3,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}
}

func validPropertyRequest() handlers.PropertyRequest {
	return handlers.PropertyRequest{
		ID:            "cap-cana-villa",
		Name:          "Luxury Villa Cap Cana",
		Location:      "Cap Cana, Dominican Republic",
		PricePerNight: "285.00",
		TotalShares:   52,
		SharePrice:    "3750.00",
		IsActive:      true,
	}
}

func TestPropertyList_PublicCatalog(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		ListActiveFunc: func(ctx context.Context) ([]*services.PropertyView, error) {
			return []*services.PropertyView{
				{
					Property: testProperty(),
					Agent:    &models.PropertyAgentInfo{FirstName: "John", LastName: "Smith", Email: "john@agency.example", Phone: "+1 555 0100", City: "Warsaw"},
				},
			}, nil
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "GET", "/api/properties", nil)

	w := httptest.NewRecorder()
	handler.List(w, req)

	var resp struct {
		Properties []*handlers.PropertyResponse `json:"properties"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp.Properties, 1)
	assert.Equal(t, "cap-cana-villa", resp.Properties[0].ID)
	require.NotNil(t, resp.Properties[0].Agent)
	assert.Equal(t, "John", resp.Properties[0].Agent.FirstName)
}

func TestPropertyGet_Found(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		GetFunc: func(ctx context.Context, id string) (*services.PropertyView, error) {
			assert.Equal(t, "cap-cana-villa", id)
			return &services.PropertyView{Property: testProperty()}, nil
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "GET", "/api/properties/cap-cana-villa", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "cap-cana-villa"})

	w := httptest.NewRecorder()
	handler.Get(w, req)

	var resp struct {
		Property *handlers.PropertyResponse `json:"property"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "285.00", resp.Property.PricePerNight)
	assert.Nil(t, resp.Property.Agent)
}

func TestPropertyGet_NotFound(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		GetFunc: func(ctx context.Context, id string) (*services.PropertyView, error) {
			return nil, models.ErrNotFound
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "GET", "/api/properties/missing", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "missing"})

	w := httptest.NewRecorder()
	handler.Get(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestPropertyAdminList_IncludesInactive(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		ListAllFunc: func(ctx context.Context) ([]*models.Property, error) {
			inactive := testProperty()
			inactive.ID = "retired-listing"
			inactive.IsActive = false
			return []*models.Property{testProperty(), inactive}, nil
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "GET", "/api/admin/properties", nil)

	w := httptest.NewRecorder()
	handler.AdminList(w, req)

	var resp struct {
		Properties []*handlers.PropertyResponse `json:"properties"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp.Properties, 2)
	assert.False(t, resp.Properties[1].IsActive)
}

func TestPropertyCreate_Success(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		CreateFunc: func(ctx context.Context, input services.PropertyInput) (*models.Property, error) {
			assert.Equal(t, "cap-cana-villa", input.ID)
			assert.Equal(t, 52, input.TotalShares)
			return testProperty(), nil
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "POST", "/api/admin/properties", validPropertyRequest())

	w := httptest.NewRecorder()
	handler.Create(w, req)

	var resp struct {
		Property *handlers.PropertyResponse `json:"property"`
	}
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "cap-cana-villa", resp.Property.ID)
}

func TestPropertyCreate_InvalidData(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		CreateFunc: func(ctx context.Context, input services.PropertyInput) (*models.Property, error) {
			return nil, models.ErrBadRequest
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	body := validPropertyRequest()
	body.TotalShares = 60
	req := handlers.NewTestRequest(t, "POST", "/api/admin/properties", body)

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestPropertyCreate_DuplicateID(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		CreateFunc: func(ctx context.Context, input services.PropertyInput) (*models.Property, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "POST", "/api/admin/properties", validPropertyRequest())

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestPropertyCreate_MissingFields(t *testing.T) {
	handler := handlers.NewPropertyHandler(&handlers.MockPropertyService{})
	req := handlers.NewTestRequest(t, "POST", "/api/admin/properties", handlers.PropertyRequest{
		Name: "No location",
	})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestPropertyUpdate_Success(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		UpdateFunc: func(ctx context.Context, id string, input services.PropertyInput) (*models.Property, error) {
			assert.Equal(t, "cap-cana-villa", id)
			p := testProperty()
			p.Name = input.Name
			return p, nil
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	body := validPropertyRequest()
	body.Name = "Renamed Villa"
	req := handlers.NewTestRequest(t, "PUT", "/api/admin/properties/cap-cana-villa", body)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "cap-cana-villa"})

	w := httptest.NewRecorder()
	handler.Update(w, req)

	var resp struct {
		Property *handlers.PropertyResponse `json:"property"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "Renamed Villa", resp.Property.Name)
}

func TestPropertyUpdate_NotFound(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		UpdateFunc: func(ctx context.Context, id string, input services.PropertyInput) (*models.Property, error) {
			return nil, models.ErrNotFound
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "PUT", "/api/admin/properties/missing", validPropertyRequest())
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "missing"})

	w := httptest.NewRecorder()
	handler.Update(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestPropertyDelete_Success(t *testing.T) {
	deleted := false
	mockProperties := &handlers.MockPropertyService{
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			assert.Equal(t, "cap-cana-villa", id)
			return nil
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "DELETE", "/api/admin/properties/cap-cana-villa", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "cap-cana-villa"})

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, deleted)
}

func TestPropertyDelete_NotFound(t *testing.T) {
	mockProperties := &handlers.MockPropertyService{
		DeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}

	handler := handlers.NewPropertyHandler(mockProperties)
	req := handlers.NewTestRequest(t, "DELETE", "/api/admin/properties/missing", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "missing"})

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}
