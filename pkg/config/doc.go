// Package config loads env-tagged configuration structs from the process
// environment, reading a .env file first when one exists. It is the single
// entry point all NewFromConfig constructors in this module expect callers
// to use.
//
//	var cfg session.Config
//	config.MustLoad(&cfg)
package config
