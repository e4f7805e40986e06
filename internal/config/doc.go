// Package config loads declarative navstack route tables.
//
// A route table is stored in navstack.json or navstack.yaml at the project
// root, or in S3 under an s3://bucket/key URI. This package handles loading,
// saving and validating it, and turns it into a compiled router tree.
//
// # Route Table Structure
//
//	{
//	  "name": "family",
//	  "routes": [
//	    {"path": "/", "name": "home", "title": "Home"},
//	    {
//	      "path": "/family/:fid",
//	      "name": "family",
//	      "title": "Family :fid",
//	      "guard": {"when": "has(state.user)", "redirect": "/login?from={location}"},
//	      "children": [
//	        {"path": "person/:pid(\\d+)", "name": "person"}
//	      ]
//	    },
//	    {"path": "/login", "name": "login"},
//	    {"path": "/old/:fid", "redirect": "/family/:fid"}
//	  ],
//	  "redirects": [
//	    {"from": "/admin", "to": "/login", "when": "!has(state.admin)"}
//	  ],
//	  "resolver": {"maxRedirects": 16},
//	  "server": {"host": "localhost", "port": 8080},
//	  "log": {"level": "info", "format": "text"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree, err := cfg.Tree()
//	opts, err := cfg.ResolverOptions(cfg.Logger(os.Stderr))
//	res := router.NewResolver(opts...).Resolve(ctx, tree, "/family/f1", nil)
//
// A Watcher recompiles the tree whenever the file changes.
package config
