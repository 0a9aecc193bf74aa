// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package upstream

import "time"

// Pagination is the page block shared by the LMS and WordPress listings.
type Pagination struct {
	Count    int    `json:"count"`
	NumPages int    `json:"num_pages"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
}

// LMSMedia holds the course media URLs.
type LMSMedia struct {
	Image struct {
		Raw string `json:"raw"`
	} `json:"image"`
	CourseVideo struct {
		URI string `json:"uri"`
	} `json:"course_video"`
}

// LMSCourse is one entry of the LMS Courses API.
type LMSCourse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Number           string     `json:"number"`
	Org              string     `json:"org"`
	ShortDescription string     `json:"short_description"`
	Start            *time.Time `json:"start"`
	End              *time.Time `json:"end"`
	EnrollmentStart  *time.Time `json:"enrollment_start"`
	EnrollmentEnd    *time.Time `json:"enrollment_end"`
	Pacing           string     `json:"pacing"`
	Hidden           bool       `json:"hidden"`
	InviteOnly       bool       `json:"invite_only"`
	MobileAvailable  bool       `json:"mobile_available"`
	Media            LMSMedia   `json:"media"`
}

// LMSCoursePage is one page of the LMS Courses API.
type LMSCoursePage struct {
	Pagination Pagination  `json:"pagination"`
	Results    []LMSCourse `json:"results"`
}

// EcommerceAttribute is a product attribute. Seats and entitlements name
// their attributes; enrollment codes key them by code.
type EcommerceAttribute struct {
	Name  string      `json:"name"`
	Code  string      `json:"code,omitempty"`
	Value interface{} `json:"value"`
}

// EcommerceStockRecord is a product's price entry.
type EcommerceStockRecord struct {
	PriceCurrency string `json:"price_currency"`
	PriceExclTax  string `json:"price_excl_tax"`
	PartnerSKU    string `json:"partner_sku"`
}

// EcommerceProduct is a seat or parent product.
type EcommerceProduct struct {
	Title           string                 `json:"title"`
	Structure       string                 `json:"structure"`
	ProductClass    string                 `json:"product_class"`
	Expires         *time.Time             `json:"expires"`
	AttributeValues []EcommerceAttribute   `json:"attribute_values"`
	StockRecords    []EcommerceStockRecord `json:"stockrecords"`
}

// Attribute returns the attribute named or coded name as a string.
func (p *EcommerceProduct) Attribute(name string) (string, bool) {
	for _, a := range p.AttributeValues {
		if a.Name == name || a.Code == name {
			if s, ok := a.Value.(string); ok {
				return s, true
			}
			return "", a.Value != nil
		}
	}
	return "", false
}

// EcommerceCourse is a course with its products.
type EcommerceCourse struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Type     string             `json:"type"`
	Products []EcommerceProduct `json:"products"`
}

// EcommerceProductPage is one page of the products endpoint.
type EcommerceProductPage struct {
	Count   int                `json:"count"`
	Next    *string            `json:"next"`
	Results []EcommerceProduct `json:"results"`
}

// Product classes listed by Ecommerce.ListProducts.
const (
	ProductClassEntitlement    = "Course Entitlement"
	ProductClassEnrollmentCode = "Enrollment Code"
)

// PublicationProduct is a seat in a publication request.
type PublicationProduct struct {
	ProductClass    string               `json:"product_class"`
	Expires         *time.Time           `json:"expires"`
	Price           string               `json:"price"`
	AttributeValues []EcommerceAttribute `json:"attribute_values"`
}

// Publication pushes a course run and its seats to Ecommerce.
type Publication struct {
	ID                   string               `json:"id"`
	UUID                 string               `json:"uuid"`
	Name                 string               `json:"name"`
	VerificationDeadline *time.Time           `json:"verification_deadline"`
	Products             []PublicationProduct `json:"products"`
}

// StudioSchedule is a run's dates in a Studio request.
type StudioSchedule struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// StudioTeamMember grants a Studio role on a run.
type StudioTeamMember struct {
	User string `json:"user"`
	Role string `json:"role"`
}

// StudioCourseRun creates a run in Studio.
type StudioCourseRun struct {
	Title      string             `json:"title"`
	Org        string             `json:"org"`
	Number     string             `json:"number"`
	Run        string             `json:"run"`
	Schedule   StudioSchedule     `json:"schedule"`
	Team       []StudioTeamMember `json:"team"`
	PacingType string             `json:"pacing_type"`
}

// WordPressCategory is a marketing-site subject.
type WordPressCategory struct {
	ID                int               `json:"id"`
	Title             string            `json:"title"`
	Slug              string            `json:"slug"`
	Description       string            `json:"description"`
	Permalink         string            `json:"permalink"`
	TitleTranslations map[string]string `json:"title_translations"`
}

// WordPressInstructor is a marketing-site instructor profile.
type WordPressInstructor struct {
	MarketingID  int64  `json:"marketing_id"`
	MarketingURL string `json:"marketing_url"`
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	Bio          string `json:"bio"`
	PhoneNumber  string `json:"phone_number"`
	Website      string `json:"website"`
}

// WordPressCourseRun is the marketing data for one run.
type WordPressCourseRun struct {
	CourseID               string                `json:"course_id"`
	Excerpt                string                `json:"excerpt"`
	Description            string                `json:"description"`
	Outcome                string                `json:"outcome"`
	Featured               bool                  `json:"featured"`
	FeaturedImageURL       string                `json:"featured_image_url"`
	Slug                   string                `json:"slug"`
	YTVideoURL             string                `json:"yt_video_url"`
	CourseDurationOverride *int                  `json:"course_duration_override"`
	Status                 string                `json:"status"`
	Tags                   []string              `json:"tags"`
	Categories             []WordPressCategory   `json:"categories"`
	CourseInstructors      []WordPressInstructor `json:"course_instructors"`
}

// WordPressPage is one page of marketing course runs.
type WordPressPage struct {
	Pagination Pagination           `json:"pagination"`
	Results    []WordPressCourseRun `json:"results"`
}
