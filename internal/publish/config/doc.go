// Package config loads runtime configuration for the publish tool.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment: PUBLISH_ENDPOINT, PUBLISH_USER, PUBLISH_PASSWORD.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   deployment endpoint receiving the archive
//	-u string   basic auth user
//	-d string   directory to archive
//	-n string   archive name, written as ../<name>.zip
//	-t int      upload timeout (seconds)
//
// # JSON schema
//
//	{
//	  "endpoint": "https://intrusiondetector.scm.azurewebsites.net/api/zip/site/wwwroot",
//	  "user": "$intrusiondetector",
//	  "dir": ".",
//	  "name": "intrusiondetector",
//	  "timeout": "2m"
//	}
//
// The password is never read from flags; it comes from the JSON file, the
// environment or an interactive prompt.
package config
