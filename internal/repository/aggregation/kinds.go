package aggregation

// category is how a result kind maps onto the domain variants.
type category int

const (
	categoryUnknown category = iota
	categorySingle
	categoryStats
	categoryPercentiles
	categoryPercentileRanks
	categoryBucketed
	categoryWrapper
)

// typedKinds maps typed_keys prefixes (the part before '#') to categories.
var typedKinds = map[string]category{
	// single-value metrics and pipelines
	"sum":                       categorySingle,
	"min":                       categorySingle,
	"max":                       categorySingle,
	"avg":                       categorySingle,
	"value_count":               categorySingle,
	"cardinality":               categorySingle,
	"weighted_avg":              categorySingle,
	"median_absolute_deviation": categorySingle,
	"simple_value":              categorySingle,
	"derivative":                categorySingle,
	"bucket_metric_value":       categorySingle,

	// extended stats are read as plain stats
	"stats":                 categoryStats,
	"extended_stats":        categoryStats,
	"stats_bucket":          categoryStats,
	"extended_stats_bucket": categoryStats,

	"tdigest_percentiles": categoryPercentiles,
	"hdr_percentiles":     categoryPercentiles,
	"percentiles_bucket":  categoryPercentiles,

	"tdigest_percentile_ranks": categoryPercentileRanks,
	"hdr_percentile_ranks":     categoryPercentileRanks,

	"sterms":                   categoryBucketed,
	"lterms":                   categoryBucketed,
	"dterms":                   categoryBucketed,
	"umterms":                  categoryBucketed,
	"srareterms":               categoryBucketed,
	"lrareterms":               categoryBucketed,
	"sigsterms":                categoryBucketed,
	"siglterms":                categoryBucketed,
	"multi_terms":              categoryBucketed,
	"histogram":                categoryBucketed,
	"date_histogram":           categoryBucketed,
	"auto_date_histogram":      categoryBucketed,
	"variable_width_histogram": categoryBucketed,
	"range":                    categoryBucketed,
	"date_range":               categoryBucketed,
	"geo_distance":             categoryBucketed,
	"ip_range":                 categoryBucketed,
	"filters":                  categoryBucketed,
	"adjacency_matrix":         categoryBucketed,
	"composite":                categoryBucketed,
	"geotile_grid":             categoryBucketed,
	"geohash_grid":             categoryBucketed,

	"filter":              categoryWrapper,
	"nested":              categoryWrapper,
	"reverse_nested":      categoryWrapper,
	"children":            categoryWrapper,
	"parent":              categoryWrapper,
	"global":              categoryWrapper,
	"missing":             categoryWrapper,
	"sampler":             categoryWrapper,
	"diversified_sampler": categoryWrapper,
}

// untypedKind is the kind label reported for results whose shape matched nothing.
const untypedKind = "untyped"
