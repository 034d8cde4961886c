// Package config provides the route table configuration model, YAML
// loading with environment variable substitution, validation, and file
// watching for hot reload.
//
// A route table looks like:
//
//	apiVersion: avaroute.io/v1
//	kind: RouteTable
//	metadata:
//	  name: blog
//	spec:
//	  routes:
//	    - name: post-show
//	      path: /posts/{id}
//	      methods: [GET]
//	      constraints:
//	        id: "[0-9]+"
//	    - name: post-slug
//	      path: /posts/{slug}
//	      expressions:
//	        slug: "{segment} != 'admin'"
//
// Values may reference the environment as ${VAR} or ${VAR:-default};
// "$$" produces a literal dollar sign.
//
//	table, err := config.LoadConfig("routes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(table); err != nil {
//	    log.Fatal(err)
//	}
package config
