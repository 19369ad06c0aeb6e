// Package config loads the client settings file. Settings can be written in
// HCL or YAML; both decode into the same Settings struct. Values from the
// environment, optionally seeded from a .env file, override the file.
//
// Zero values mean "use the default", so a missing block or attribute never
// needs to be spelled out.
package config
