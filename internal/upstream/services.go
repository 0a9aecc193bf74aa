// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package upstream

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/catalogus/internal/models"
)

// CatalogAPI calls this service's own REST API.
type CatalogAPI struct {
	client *Client
}

// NewCatalogAPI wraps a client whose base URL is the API root.
func NewCatalogAPI(client *Client) *CatalogAPI {
	return &CatalogAPI{client: client}
}

var excludeUTM = url.Values{"exclude_utm": {"1"}}

// CreateCourse posts a new course with its first run.
func (a *CatalogAPI) CreateCourse(ctx context.Context, body *models.CourseCreate) (*models.Course, error) {
	var course models.Course
	if err := a.client.Post(ctx, "/api/v1/courses/", body, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourse patches the course identified by uuid.
func (a *CatalogAPI) UpdateCourse(ctx context.Context, uuid string, body *models.CourseUpdate) (*models.Course, error) {
	var course models.Course
	if err := a.client.Patch(ctx, "/api/v1/courses/"+url.PathEscape(uuid)+"/", excludeUTM, body, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourseRun patches the run identified by key.
func (a *CatalogAPI) UpdateCourseRun(ctx context.Context, key string, body *models.CourseRunUpdate) (*models.CourseRun, error) {
	var run models.CourseRun
	if err := a.client.Patch(ctx, "/api/v1/course_runs/"+url.PathEscape(key)+"/", excludeUTM, body, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Studio is the course authoring service.
type Studio struct {
	client *Client
}

// NewStudio wraps a client whose base URL is the partner's studio_url.
func NewStudio(client *Client) *Studio {
	return &Studio{client: client}
}

// CreateCourseRun creates a run and returns the key Studio assigned.
func (s *Studio) CreateCourseRun(ctx context.Context, body *StudioCourseRun) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := s.client.Post(ctx, "/api/v1/course_runs/", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("studio returned no course run key")
	}
	return out.ID, nil
}

// UploadCourseRunImage sends the run's card image as multipart form data.
func (s *Studio) UploadCourseRunImage(ctx context.Context, key, filename string, image []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("card_image", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return s.client.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/api/v1/course_runs/" + url.PathEscape(key) + "/images/",
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, nil)
}

// Ecommerce is the payments service.
type Ecommerce struct {
	client *Client
}

// NewEcommerce wraps a client whose base URL is the partner's
// ecommerce_api_url.
func NewEcommerce(client *Client) *Ecommerce {
	return &Ecommerce{client: client}
}

// Publish creates or updates the run's seats.
func (e *Ecommerce) Publish(ctx context.Context, body *Publication) error {
	return e.client.Post(ctx, "publication/", body, nil)
}

// GetCourse fetches a course run with its products.
func (e *Ecommerce) GetCourse(ctx context.Context, courseID string) (*EcommerceCourse, error) {
	var out EcommerceCourse
	q := url.Values{"include_products": {"true"}}
	if err := e.client.Get(ctx, "courses/"+url.PathEscape(courseID)+"/", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts fetches one page of products of productClass. courseID, when
// set, narrows the page to one course run.
func (e *Ecommerce) ListProducts(ctx context.Context, productClass string, page, pageSize int, courseID string) (*EcommerceProductPage, error) {
	var out EcommerceProductPage
	q := url.Values{
		"page":          {strconv.Itoa(page)},
		"page_size":     {strconv.Itoa(pageSize)},
		"product_class": {productClass},
	}
	if courseID != "" {
		q.Set("course_id", courseID)
	}
	if err := e.client.Get(ctx, "products/", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CoursesAPI is the LMS course listing.
type CoursesAPI struct {
	client *Client
}

// NewCoursesAPI wraps a client whose base URL is the partner's
// courses_api_url.
func NewCoursesAPI(client *Client) *CoursesAPI {
	return &CoursesAPI{client: client}
}

// ListCourses fetches one page of course runs.
func (c *CoursesAPI) ListCourses(ctx context.Context, page, pageSize int, username string) (*LMSCoursePage, error) {
	q := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	if username != "" {
		q.Set("username", username)
	}
	var out LMSCoursePage
	if err := c.client.Get(ctx, "courses/", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCourse fetches one course run as a single-entry page.
func (c *CoursesAPI) GetCourse(ctx context.Context, courseID, username string) (*LMSCoursePage, error) {
	q := url.Values{}
	if username != "" {
		q.Set("username", username)
	}
	var course LMSCourse
	if err := c.client.Get(ctx, "courses/"+url.PathEscape(courseID), q, &course); err != nil {
		return nil, err
	}
	return &LMSCoursePage{
		Pagination: Pagination{Count: 1, NumPages: 1},
		Results:    []LMSCourse{course},
	}, nil
}

// WordPress is the marketing site API.
type WordPress struct {
	client *Client
}

// NewWordPress wraps a client whose base URL is the partner's
// marketing_site_api_url.
func NewWordPress(client *Client) *WordPress {
	return &WordPress{client: client}
}

// ListCourseRuns fetches one page of marketing data, optionally for one run.
func (w *WordPress) ListCourseRuns(ctx context.Context, page, pageSize int, courseID string) (*WordPressPage, error) {
	q := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	if courseID != "" {
		q.Set("course_id", courseID)
	}
	var out WordPressPage
	if err := w.client.Get(ctx, w.client.BaseURL(), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
