package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Platform identifies the social media platform a crawl targets.
type Platform string

// Supported platforms
const (
	PlatformXHS      Platform = "xhs"
	PlatformDouyin   Platform = "dy"
	PlatformKuaishou Platform = "ks"
	PlatformBilibili Platform = "bili"
	PlatformWeibo    Platform = "wb"
	PlatformTieba    Platform = "tieba"
	PlatformZhihu    Platform = "zhihu"
)

// LoginType selects how the crawler authenticates against the platform.
type LoginType string

// Supported login types
const (
	LoginTypeQRCode LoginType = "qrcode"
	LoginTypePhone  LoginType = "phone"
	LoginTypeCookie LoginType = "cookie"
)

// CrawlerType is the crawl operating mode.
type CrawlerType string

// Supported crawler types
const (
	CrawlerTypeSearch  CrawlerType = "search"
	CrawlerTypeDetail  CrawlerType = "detail"
	CrawlerTypeCreator CrawlerType = "creator"
)

// SaveDataOption is the persistence target collected records are written to.
type SaveDataOption string

// Supported persistence targets
const (
	SaveDataJSON   SaveDataOption = "json"
	SaveDataCSV    SaveDataOption = "csv"
	SaveDataSQLite SaveDataOption = "sqlite"
	SaveDataDB     SaveDataOption = "db"
)

// Stateful reports whether the target is a database that has to be opened
// before the crawl and released after it.
func (o SaveDataOption) Stateful() bool {
	return o == SaveDataSQLite || o == SaveDataDB
}

// Submission defaults applied to fields a request leaves empty.
const (
	DefaultPlatform       = PlatformXHS
	DefaultLoginType      = LoginTypeQRCode
	DefaultCrawlerType    = CrawlerTypeSearch
	DefaultStartPage      = 1
	DefaultSaveDataOption = SaveDataJSON
	DefaultMaxNotesCount  = 20
)

// Option is one selectable value of an enumeration, with a display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Option tables in display order.
var (
	PlatformOptions = []Option{
		{Value: string(PlatformXHS), Label: "Xiaohongshu"},
		{Value: string(PlatformDouyin), Label: "Douyin"},
		{Value: string(PlatformKuaishou), Label: "Kuaishou"},
		{Value: string(PlatformBilibili), Label: "Bilibili"},
		{Value: string(PlatformWeibo), Label: "Weibo"},
		{Value: string(PlatformTieba), Label: "Baidu Tieba"},
		{Value: string(PlatformZhihu), Label: "Zhihu"},
	}

	LoginTypeOptions = []Option{
		{Value: string(LoginTypeQRCode), Label: "QR code login"},
		{Value: string(LoginTypePhone), Label: "Phone login"},
		{Value: string(LoginTypeCookie), Label: "Cookie login"},
	}

	CrawlerTypeOptions = []Option{
		{Value: string(CrawlerTypeSearch), Label: "Keyword search"},
		{Value: string(CrawlerTypeDetail), Label: "Post detail"},
		{Value: string(CrawlerTypeCreator), Label: "Creator profile"},
	}

	SaveDataOptions = []Option{
		{Value: string(SaveDataJSON), Label: "JSON file"},
		{Value: string(SaveDataCSV), Label: "CSV file"},
		{Value: string(SaveDataSQLite), Label: "SQLite database"},
		{Value: string(SaveDataDB), Label: "MySQL/PostgreSQL database"},
	}
)

// CrawlConfig is the validated set of parameters of one crawl submission.
// A task copies it at creation time and never changes it afterwards.
type CrawlConfig struct {
	Platform       Platform       `json:"platform" validate:"required,oneof=xhs dy ks bili wb tieba zhihu"`
	LoginType      LoginType      `json:"login_type" validate:"required,oneof=qrcode phone cookie"`
	CrawlerType    CrawlerType    `json:"crawler_type" validate:"required,oneof=search detail creator"`
	Keywords       string         `json:"keywords" validate:"required_if=CrawlerType search"`
	CreatorID      string         `json:"creator_id" validate:"required_if=CrawlerType creator"`
	StartPage      int            `json:"start_page" validate:"gte=1"`
	GetComments    bool           `json:"get_comments"`
	GetSubComments bool           `json:"get_sub_comments"`
	SaveDataOption SaveDataOption `json:"save_data_option" validate:"required,oneof=json csv sqlite db"`
	MaxNotesCount  int            `json:"max_notes_count" validate:"gte=1"`
	Cookies        string         `json:"cookies,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// WithDefaults returns a copy of c with empty fields set to the submission
// defaults. Keywords and creator id have no default.
func (c CrawlConfig) WithDefaults() CrawlConfig {
	if c.Platform == "" {
		c.Platform = DefaultPlatform
	}
	if c.LoginType == "" {
		c.LoginType = DefaultLoginType
	}
	if c.CrawlerType == "" {
		c.CrawlerType = DefaultCrawlerType
	}
	if c.StartPage == 0 {
		c.StartPage = DefaultStartPage
	}
	if c.SaveDataOption == "" {
		c.SaveDataOption = DefaultSaveDataOption
	}
	if c.MaxNotesCount == 0 {
		c.MaxNotesCount = DefaultMaxNotesCount
	}
	c.Keywords = strings.TrimSpace(c.Keywords)
	c.CreatorID = strings.TrimSpace(c.CreatorID)
	return c
}

// Validate checks the configuration. The returned error is a
// *ValidationError wrapping ErrValidation for the first invalid field.
func (c CrawlConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError("", err.Error(), ErrValidation)
	}

	fe := verrs[0]
	return NewValidationError(fe.Field(), fieldMessage(fe), ErrValidation)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		// Param looks like "CrawlerType search".
		parts := strings.Fields(fe.Param())
		if len(parts) == 2 {
			return fmt.Sprintf("is required when crawler_type is %s", parts[1])
		}
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return "is invalid"
	}
}
