// Package aggflat turns Elasticsearch/OpenSearch aggregation results into
// plain ordered maps that can be rendered as JSON or fed to a table.
//
// Metric aggregations become numbers and bucket aggregations become maps keyed
// by bucket key. A request holding one plain metric flattens to a bare number.
//
// # Against a live cluster
//
//	client, _ := aggflat.New(ctx,
//	    aggflat.WithElasticsearch("http://localhost:9200"),
//	    aggflat.WithCache([]string{"localhost:6379"}, "", time.Minute),
//	)
//	defer client.Close()
//
//	out, _ := client.Aggregate(ctx, []string{"people"},
//	    []byte(`{"sex":{"terms":{"field":"sex"},"aggs":{"avgAge":{"avg":{"field":"age"}}}}}`), nil)
//	// {"sex":{"M":{"avgAge":22.5},"F":{"avgAge":31}}}
//
// # Offline
//
//	out, _ := aggflat.FlattenJSON(searchResponseBody)
package aggflat
