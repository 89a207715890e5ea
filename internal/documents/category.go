package documents

import (
	"fmt"
	"sort"
	"strings"
)

// EntityKind names the business record a document is attached to.
type EntityKind string

const (
	KindCarrier EntityKind = "carrier"
	KindDriver  EntityKind = "driver"
	KindVehicle EntityKind = "vehicle"
	KindInvoice EntityKind = "invoice"
	KindService EntityKind = "service"
)

// Category is a closed set of document types. The string value is the
// discriminator clients send and the prefix of the stored file name.
type Category string

const (
	// carrier compliance paperwork
	CategoryTaxCertificate    Category = "vergi"
	CategoryTradeRegistry     Category = "sicil"
	CategorySignatureCircular Category = "imza"
	CategoryK1                Category = "k1"
	CategoryK2                Category = "k2"
	CategoryK3                Category = "k3"

	// driver documents
	CategoryLicenseFront    Category = "dlFront"
	CategoryLicenseBack     Category = "dlBack"
	CategorySRC             Category = "src"
	CategoryCriminalRecord  Category = "criminalRecord"
	CategoryHealthReport    Category = "healthReport"
	CategoryPsychotechnique Category = "psychotechnique"

	// vehicle documents
	CategoryRegistration  Category = "registration"
	CategoryInspection    Category = "inspection"
	CategoryInsurance     Category = "insurance"
	CategoryComprehensive Category = "comprehensive"

	CategoryInvoiceCustomer Category = "invoice-customer"
	CategoryInvoiceCarrier  Category = "invoice-carrier"

	CategoryServiceIcon Category = "service-icon"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

type naming int

const (
	// {folder}/{category}_{id}_{ms}.{ext}
	namingEntity naming = iota
	// {folder}/invoice_{id}_{ms}.pdf
	namingInvoice
	// {folder}/{id}.{ext}, overwritten in place
	namingByID
)

type categorySpec struct {
	kind    EntityKind
	folder  string
	allowed []string
	naming  naming
	// public objects get a world-readable URL; the rest are only served through the gateway.
	public bool
}

var (
	pdfOnly   = []string{MIMEPDF}
	pdfImages = []string{MIMEPDF, MIMEJPEG, MIMEPNG}
	images    = []string{MIMEJPEG, MIMEPNG}
)

// Stored paths are read back by other systems; folder names must not change.
var categoryTable = map[Category]categorySpec{
	CategoryTaxCertificate:    {kind: KindCarrier, folder: "tasiyici-firma-belge/vergi-levhalari", allowed: pdfOnly},
	CategoryTradeRegistry:     {kind: KindCarrier, folder: "tasiyici-firma-belge/ticaret-sicil", allowed: pdfOnly},
	CategorySignatureCircular: {kind: KindCarrier, folder: "tasiyici-firma-belge/imza-sirkuleri", allowed: pdfOnly},
	CategoryK1:                {kind: KindCarrier, folder: "tasiyici-firma-belge/k-belgeleri", allowed: pdfOnly},
	CategoryK2:                {kind: KindCarrier, folder: "tasiyici-firma-belge/k-belgeleri", allowed: pdfOnly},
	CategoryK3:                {kind: KindCarrier, folder: "tasiyici-firma-belge/k-belgeleri", allowed: pdfOnly},

	CategoryLicenseFront:    {kind: KindDriver, folder: "surucu-belge/ehliyet/on-yuz", allowed: pdfImages},
	CategoryLicenseBack:     {kind: KindDriver, folder: "surucu-belge/ehliyet/arka-yuz", allowed: pdfImages},
	CategorySRC:             {kind: KindDriver, folder: "surucu-belge/src", allowed: pdfImages},
	CategoryCriminalRecord:  {kind: KindDriver, folder: "surucu-belge/adli-sicil", allowed: pdfImages},
	CategoryHealthReport:    {kind: KindDriver, folder: "surucu-belge/saglik-raporu", allowed: pdfImages},
	CategoryPsychotechnique: {kind: KindDriver, folder: "surucu-belge/psikoteknik", allowed: pdfImages},

	CategoryRegistration:  {kind: KindVehicle, folder: "arac-belge/ruhsat", allowed: pdfImages},
	CategoryInspection:    {kind: KindVehicle, folder: "arac-belge/muayene", allowed: pdfImages},
	CategoryInsurance:     {kind: KindVehicle, folder: "arac-belge/sigorta", allowed: pdfImages},
	CategoryComprehensive: {kind: KindVehicle, folder: "arac-belge/kasko", allowed: pdfImages},

	CategoryInvoiceCustomer: {kind: KindInvoice, folder: "faturalar/musteri-fatura", allowed: pdfOnly, naming: namingInvoice, public: true},
	CategoryInvoiceCarrier:  {kind: KindInvoice, folder: "faturalar/tasiyici-fatura", allowed: pdfOnly, naming: namingInvoice, public: true},

	CategoryServiceIcon: {kind: KindService, folder: "service-icons", allowed: images, naming: namingByID, public: true},
}

// ParseCategory maps a client-supplied discriminator to a Category owned by kind.
// Invoices accept "customer" or "carrier"; services always map to the icon category.
func ParseCategory(kind EntityKind, raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	var cat Category
	switch kind {
	case KindInvoice:
		cat = Category("invoice-" + strings.ToLower(raw))
	case KindService:
		cat = CategoryServiceIcon
	default:
		cat = Category(raw)
	}
	if err := checkCategory(kind, cat); err != nil {
		return "", err
	}
	return cat, nil
}

// Categories returns the categories that belong to kind, sorted.
func Categories(kind EntityKind) []Category {
	var out []Category
	for cat, spec := range categoryTable {
		if spec.kind == kind {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Allows reports whether mimeType is accepted for cat.
func (c Category) Allows(mimeType string) bool {
	spec, ok := categoryTable[c]
	if !ok {
		return false
	}
	for _, m := range spec.allowed {
		if m == mimeType {
			return true
		}
	}
	return false
}

// Public reports whether objects of this category are stored world-readable.
func (c Category) Public() bool {
	return categoryTable[c].public
}

// Kind returns the entity kind the category belongs to.
func (c Category) Kind() EntityKind {
	return categoryTable[c].kind
}

func checkCategory(kind EntityKind, cat Category) error {
	if spec, ok := categoryTable[cat]; ok && spec.kind == kind {
		return nil
	}
	names := make([]string, 0)
	for _, c := range Categories(kind) {
		names = append(names, string(c))
	}
	return fmt.Errorf("%w: %q for %s (want one of %s)", ErrUnsupportedCategory, cat, kind, strings.Join(names, ", "))
}
