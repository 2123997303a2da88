package adminapi

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/storekit/storekit/internal/domain"
	"github.com/storekit/storekit/internal/product"
	"github.com/storekit/storekit/pkg/formatter"
)

func (s *Server) registerProductRoutes() {
	g := s.echo.Group("/admin")
	g.GET("/dashboard", s.getDashboard)
	g.GET("/products", s.listProducts)
	g.GET("/products/export", s.exportProducts)
	g.GET("/products/:id", s.getProduct)
	g.POST("/products", s.createProduct)
	g.PUT("/products/:id", s.updateProduct)
	g.PATCH("/products/:id/availability", s.setAvailability)
	g.DELETE("/products/:id", s.deleteProduct)
	g.GET("/products/:id/download", s.downloadProduct)
}

// listSortColumns whitelists sortable list columns.
var listSortColumns = map[string]func(a, b *domain.ProductWithOrders) bool{
	"id":         func(a, b *domain.ProductWithOrders) bool { return a.ID < b.ID },
	"name":       func(a, b *domain.ProductWithOrders) bool { return a.Name < b.Name },
	"price":      func(a, b *domain.ProductWithOrders) bool { return a.PriceInCents < b.PriceInCents },
	"created_at": func(a, b *domain.ProductWithOrders) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

func (s *Server) listProducts(c echo.Context) error {
	rows, err := s.repo.ListWithOrderCounts(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", nil)
	}

	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.Name), strings.ToLower(q)) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	// The repository already returns name ASC; resort only when asked.
	if less, ok := listSortColumns[strings.TrimSpace(c.QueryParam("sort"))]; ok {
		desc := strings.EqualFold(c.QueryParam("order"), "DESC")
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return less(&rows[j], &rows[i])
			}
			return less(&rows[i], &rows[j])
		})
	}

	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize := 20
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}

	total := int64(len(rows))
	start := (page - 1) * pageSize
	if start > len(rows) {
		start = len(rows)
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return paged(c, rows[start:end], total, page, pageSize)
}

func (s *Server) getProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := s.repo.GetByID(c.Request().Context(), id)
	if product.IsNotFound(err) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", nil)
	}
	return ok(c, p)
}

func (s *Server) createProduct(c echo.Context) error {
	in, err := bindFormInput(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse form", err.Error())
	}
	p, fieldErrs, err := s.service.Create(c.Request().Context(), in)
	if fieldErrs != nil {
		return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", fieldErrs)
	}
	if err != nil {
		var partial *product.PartialCreateError
		switch {
		case errors.As(err, &partial):
			return fail(c, http.StatusInternalServerError, "PARTIAL_CREATE_FAILURE", "Product not saved", nil)
		case errors.Is(err, product.ErrAssetIO):
			return fail(c, http.StatusInternalServerError, "ASSET_IO_ERROR", "Failed to store product assets", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", nil)
	}
	return ok(c, p)
}

func (s *Server) updateProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	in, err := bindFormInput(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse form", err.Error())
	}
	p, fieldErrs, err := s.service.Update(c.Request().Context(), id, in)
	if fieldErrs != nil {
		return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", fieldErrs)
	}
	if product.IsNotFound(err) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if errors.Is(err, product.ErrAssetIO) {
		return fail(c, http.StatusInternalServerError, "ASSET_IO_ERROR", "Failed to store product assets", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", nil)
	}
	return ok(c, p)
}

type availabilityPayload struct {
	Available bool `json:"available"`
}

func (s *Server) setAvailability(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload availabilityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse payload", nil)
	}
	err = s.service.SetAvailability(c.Request().Context(), id, payload.Available)
	if product.IsNotFound(err) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update availability", nil)
	}
	return ok(c, map[string]interface{}{"id": strconv.FormatInt(id, 10), "available": payload.Available})
}

func (s *Server) deleteProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	err = s.service.Delete(c.Request().Context(), id)
	switch {
	case product.IsNotFound(err):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	case errors.Is(err, product.ErrConflict):
		return fail(c, http.StatusConflict, "CONFLICT", "Product has existing orders", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", nil)
	}
	return ok(c, map[string]interface{}{"id": strconv.FormatInt(id, 10)})
}

func (s *Server) downloadProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	dl, err := s.service.Download(c.Request().Context(), id)
	if product.IsNotFound(err) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "ASSET_IO_ERROR", "Failed to read product file", nil)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", dl.Filename))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(dl.Size, 10))
	return c.Blob(http.StatusOK, "application/octet-stream", dl.Data)
}

type productCSVRow struct {
	ID           string `csv:"id"`
	Name         string `csv:"name"`
	Description  string `csv:"description"`
	PriceInCents int64  `csv:"price_in_cents"`
	Available    bool   `csv:"available"`
	OrderCount   int64  `csv:"order_count"`
	CreatedAt    string `csv:"created_at"`
}

func (s *Server) exportProducts(c echo.Context) error {
	rows, err := s.repo.ListWithOrderCounts(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", nil)
	}
	out := make([]*productCSVRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, &productCSVRow{
			ID:           strconv.FormatInt(row.ID, 10),
			Name:         row.Name,
			Description:  row.Description,
			PriceInCents: row.PriceInCents,
			Available:    row.IsAvailableForPurchase,
			OrderCount:   row.OrderCount,
			CreatedAt:    row.CreatedAt.Format(time.RFC3339),
		})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().WriteHeader(http.StatusOK)
	return gocsv.Marshal(&out, c.Response().Writer)
}

type dashboardCard struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Body     string `json:"body"`
}

type dashboardPayload struct {
	Sales     *product.SalesSummary       `json:"sales"`
	Customers *product.CustomerSummary    `json:"customers"`
	Products  *product.AvailabilityCounts `json:"products"`
	Cards     []dashboardCard             `json:"cards"`
}

func (s *Server) getDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	sales, err := s.repo.AggregateSales(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to aggregate sales", nil)
	}
	customers, err := s.repo.AggregateCustomers(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to aggregate customers", nil)
	}
	counts, err := s.repo.CountByAvailability(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count products", nil)
	}

	payload := dashboardPayload{
		Sales:     sales,
		Customers: customers,
		Products:  counts,
		Cards: []dashboardCard{
			{
				Title:    "Sales",
				Subtitle: fmt.Sprintf("%s Orders", formatter.Number(sales.OrderCount)),
				Body:     formatter.Currency(sales.TotalRevenueInCents),
			},
			{
				Title:    "Customers",
				Subtitle: fmt.Sprintf("%s Average Value", formatter.Currency(int64(customers.AverageRevenuePerUser))),
				Body:     formatter.Number(customers.UserCount),
			},
			{
				Title:    "Active Products",
				Subtitle: fmt.Sprintf("%s Inactive", formatter.Number(counts.InactiveCount)),
				Body:     formatter.Number(counts.ActiveCount),
			},
		},
	}
	return ok(c, payload)
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// bindFormInput reads the multipart submission into the flat
// field-keyed shape the lifecycle service validates. Missing file
// fields become nil uploads.
func bindFormInput(c echo.Context) (product.FormInput, error) {
	in := product.FormInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
	}
	file, err := readUpload(c, "file")
	if err != nil {
		return in, err
	}
	image, err := readUpload(c, "image")
	if err != nil {
		return in, err
	}
	in.File = file
	in.Image = image
	return in, nil
}

func readUpload(c echo.Context, field string) (*product.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		// Absent form file: the edit schema treats this as "keep".
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s upload", field)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s upload", field)
	}
	return &product.Upload{Name: fh.Filename, Data: data}, nil
}
