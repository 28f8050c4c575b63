// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package main

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/deptofdefense/evfs/pkg/cpiofs"
	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/evfs"
	"github.com/deptofdefense/evfs/pkg/httpfs"
	"github.com/deptofdefense/evfs/pkg/lfs"
	"github.com/deptofdefense/evfs/pkg/log"
	"github.com/deptofdefense/evfs/pkg/mount"
	"github.com/deptofdefense/evfs/pkg/s3fs"
	"github.com/deptofdefense/evfs/pkg/server"
	"github.com/deptofdefense/evfs/pkg/tarfs"
	"github.com/deptofdefense/evfs/pkg/template"
	"github.com/deptofdefense/evfs/pkg/zipfs"
)

const (
	EvfsVersion = "1.0.0"
)

const (
	TLSVersion1_2 = "1.2"
	TLSVersion1_3 = "1.3"
)

var (
	SupportedTLSVersions = []string{
		TLSVersion1_2,
		TLSVersion1_3,
	}
	TLSVersionIdentifiers = map[string]uint16{
		TLSVersion1_2: tls.VersionTLS12,
		TLSVersion1_3: tls.VersionTLS13,
	}
)

func stringSliceContains(stringSlice []string, value string) bool {
	for _, x := range stringSlice {
		if value == x {
			return true
		}
	}
	return false
}

const (
	flagMounts     = "mounts"
	flagMountsFile = "mounts-file"
	//
	flagWorkers         = "workers"
	flagMaxDepth        = "max-depth"
	flagStreamThreshold = "stream-threshold"
	flagStreamChunks    = "stream-chunks"
	flagHTTPTimeout     = "http-timeout"
	//
	flagOutput   = "output"
	flagDigest   = "digest"
	flagParallel = "parallel"
	//
	flagListenAddress     = "addr"
	flagDefaultServerCert = "server-cert"
	flagDefaultServerKey  = "server-key"
	flagTLSMinVersion     = "tls-min-version"
	flagIndexTemplate     = "index-template"
	flagNoIndex           = "no-index"
	//
	flagTimeoutRead  = "timeout-read"
	flagTimeoutWrite = "timeout-write"
	flagTimeoutIdle  = "timeout-idle"
	//
	flagLogPath       = "log"
	flagLogLevel      = "log-level"
	flagLogMaxSize    = "log-max-size"
	flagLogMaxBackups = "log-max-backups"
	//
	flagDryRun = "dry-run"
	//
	flagAWSPartition          = "aws-partition"
	flagAWSProfile            = "aws-profile"
	flagAWSDefaultRegion      = "aws-default-region"
	flagAWSRegion             = "aws-region"
	flagAWSAccessKeyID        = "aws-access-key-id"
	flagAWSSecretAccessKey    = "aws-secret-access-key"
	flagAWSSessionToken       = "aws-session-token"
	flagAWSInsecureSkipVerify = "aws-insecure-skip-verify"
	flagAWSS3Endpoint         = "aws-s3-endpoint"
	flagAWSS3UsePathStyle     = "aws-s3-use-path-style"
)

func initEvfsFlags(flag *pflag.FlagSet) {
	flag.StringP(flagMounts, "m", "", "mounts in the format of a json array of arrays [[target, source],...]")
	flag.String(flagMountsFile, "", "path to a mounts file in json, toml, or yaml format")
	flag.Int(flagWorkers, evfs.DefaultWorkers, "number of files loaded concurrently")
	flag.Int(flagMaxDepth, evfs.DefaultMaxDepth, "maximum number of nested containers walked by a load")
	flag.Int64(flagStreamThreshold, driver.DefaultStreamThreshold, "files of at least this many bytes are read in chunks")
	flag.Int(flagStreamChunks, driver.DefaultStreamChunks, "number of chunks for files read in chunks")
	flag.String(flagHTTPTimeout, "5m", "timeout for requests made by the http driver")
	initLogFlags(flag)
	initAWSFlags(flag)
}

func initLogFlags(flag *pflag.FlagSet) {
	flag.StringP(flagLogPath, "l", "-", "path to the log output.  Defaults to stdout.")
	flag.String(flagLogLevel, "info", "minimum log level, one of: debug, info, warn")
	flag.Int(flagLogMaxSize, 100, "maximum size in megabytes of the log file before it is rotated")
	flag.Int(flagLogMaxBackups, 0, "maximum number of rotated log files kept, 0 keeps all")
}

func initLoadFlags(flag *pflag.FlagSet) {
	initEvfsFlags(flag)
	flag.StringP(flagOutput, "o", "", "directory the loaded files are written to.  Defaults to stdout.")
	flag.Bool(flagDigest, false, "print the BLAKE3 digest of each file instead of its content")
	flag.IntP(flagParallel, "p", 4, "maximum number of loads in flight")
}

func initServeFlags(flag *pflag.FlagSet) {
	initEvfsFlags(flag)
	flag.StringP(flagListenAddress, "a", ":8080", "address that evfs will listen on")
	flag.String(flagDefaultServerCert, "", "path to server public cert, enables TLS")
	flag.String(flagDefaultServerKey, "", "path to server private key, enables TLS")
	flag.String(flagTLSMinVersion, TLSVersion1_2, "minimum TLS version accepted for requests")
	flag.String(flagIndexTemplate, "", "path to the template rendered for the root path")
	flag.Bool(flagNoIndex, false, "load the root path like any other path instead of rendering the mount index")
	flag.String(flagTimeoutRead, "15m", "maximum duration for reading the entire request")
	flag.String(flagTimeoutWrite, "5m", "maximum duration before timing out writes of the response")
	flag.String(flagTimeoutIdle, "5m", "maximum amount of time to wait for the next request when keep-alives are enabled")
	flag.Bool(flagDryRun, false, "exit after checking configuration")
}

func initAWSFlags(flag *pflag.FlagSet) {
	flag.String(flagAWSPartition, "", "AWS Partition")
	flag.String(flagAWSProfile, "", "AWS Profile")
	flag.String(flagAWSDefaultRegion, "", "AWS Default Region")
	flag.String(flagAWSRegion, "", "AWS Region (overrides default region)")
	flag.String(flagAWSAccessKeyID, "", "AWS Access Key ID")
	flag.String(flagAWSSecretAccessKey, "", "AWS Secret Access Key")
	flag.String(flagAWSSessionToken, "", "AWS Session Token")
	flag.Bool(flagAWSInsecureSkipVerify, false, "Skip verification of AWS TLS certificate")
	flag.String(flagAWSS3Endpoint, "", "AWS S3 Endpoint URL")
	flag.Bool(flagAWSS3UsePathStyle, false, "Use path-style addressing (default is to use virtual-host-style addressing)")
}

func initViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	err := v.BindPFlags(cmd.Flags())
	if err != nil {
		return v, fmt.Errorf("error binding flag set to viper: %w", err)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv() // set environment variables to overwrite config
	return v, nil
}

func initS3Client(v *viper.Viper) *s3.Client {
	accessKeyID := v.GetString(flagAWSAccessKeyID)
	secretAccessKey := v.GetString(flagAWSSecretAccessKey)
	sessionToken := v.GetString(flagAWSSessionToken)
	usePathStyle := v.GetBool(flagAWSS3UsePathStyle)

	region := v.GetString(flagAWSRegion)
	if len(region) == 0 {
		if defaultRegion := v.GetString(flagAWSDefaultRegion); len(defaultRegion) > 0 {
			region = defaultRegion
		}
	}

	config := aws.Config{
		RetryMaxAttempts: 3,
		Region:           region,
	}

	partition := v.GetString(flagAWSPartition)
	if len(partition) == 0 {
		partition = "aws"
	}

	if e := v.GetString(flagAWSS3Endpoint); len(e) > 0 {
		config.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(func(service string, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				endpoint := aws.Endpoint{
					PartitionID:   partition,
					URL:           e,
					SigningRegion: region,
				}
				return endpoint, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
	}

	if len(accessKeyID) > 0 && len(secretAccessKey) > 0 {
		config.Credentials = credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			sessionToken)
	}

	if v.GetBool(flagAWSInsecureSkipVerify) {
		config.HTTPClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			},
		}
	}

	return s3.NewFromConfig(config, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})
}

func parseDuration(v *viper.Viper, flag string, name string) (time.Duration, error) {
	str := v.GetString(flag)
	if len(str) == 0 {
		return 0, fmt.Errorf("%s is missing", name)
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s: %w", name, err)
	}
	return d, nil
}

func checkConfig(v *viper.Viper) error {
	if _, err := mount.ParsePairs(v.GetString(flagMounts)); err != nil {
		return fmt.Errorf("invalid format for mounts: %w", err)
	}
	if mountsFile := v.GetString(flagMountsFile); len(mountsFile) > 0 {
		if _, err := mount.FormatOf(mountsFile); err != nil {
			return err
		}
	}
	if workers := v.GetInt(flagWorkers); workers < 1 {
		return fmt.Errorf("invalid number of workers %d, must be at least 1", workers)
	}
	if maxDepth := v.GetInt(flagMaxDepth); maxDepth < 1 {
		return fmt.Errorf("invalid max depth %d, must be at least 1", maxDepth)
	}
	if threshold := v.GetInt64(flagStreamThreshold); threshold < 0 {
		return fmt.Errorf("invalid stream threshold %d, must not be negative", threshold)
	}
	if chunks := v.GetInt(flagStreamChunks); chunks < 1 {
		return fmt.Errorf("invalid number of stream chunks %d, must be at least 1", chunks)
	}
	if _, err := parseDuration(v, flagHTTPTimeout, "http timeout"); err != nil {
		return err
	}
	logPath := v.GetString(flagLogPath)
	if len(logPath) == 0 {
		return fmt.Errorf("log path is missing")
	}
	logLevel := v.GetString(flagLogLevel)
	if !stringSliceContains([]string{"debug", "info", "warn"}, logLevel) {
		return fmt.Errorf("invalid log level %q", logLevel)
	}
	return nil
}

func checkServeConfig(v *viper.Viper) error {
	if err := checkConfig(v); err != nil {
		return err
	}
	addr := v.GetString(flagListenAddress)
	if len(addr) == 0 {
		return fmt.Errorf("listen address is missing")
	}
	serverCert := v.GetString(flagDefaultServerCert)
	serverKey := v.GetString(flagDefaultServerKey)
	if (len(serverCert) > 0) != (len(serverKey) > 0) {
		return fmt.Errorf("server cert and server key must be given together")
	}
	if minVersion := v.GetString(flagTLSMinVersion); !stringSliceContains(SupportedTLSVersions, minVersion) {
		return fmt.Errorf("invalid minimum TLS version %q", minVersion)
	}
	for _, t := range []struct {
		flag string
		name string
	}{
		{flag: flagTimeoutRead, name: "read timeout"},
		{flag: flagTimeoutWrite, name: "write timeout"},
		{flag: flagTimeoutIdle, name: "idle timeout"},
	} {
		d, err := parseDuration(v, t.flag, t.name)
		if err != nil {
			return err
		}
		if d < 5*time.Second || d > 30*time.Minute {
			return fmt.Errorf("invalid %s %q, must be greater than or equal to 5 seconds and less than or equal to 30 minutes", t.name, d)
		}
	}
	return nil
}

func initLogger(v *viper.Viper) (*log.SimpleLogger, func() error, error) {
	w := log.NewRotatingWriter(log.RotationConfig{
		Filename:   v.GetString(flagLogPath),
		MaxSize:    v.GetInt(flagLogMaxSize),
		MaxBackups: v.GetInt(flagLogMaxBackups),
	})
	logger := log.NewSimpleLogger(w)
	if err := logger.SetLevel(v.GetString(flagLogLevel)); err != nil {
		_ = w.Close()
		return nil, nil, err
	}
	closer := func() error {
		_ = logger.Sync()
		return w.Close()
	}
	return logger, closer, nil
}

func initMounts(v *viper.Viper) ([]mount.Config, error) {
	configs := []mount.Config{}
	if mountsFile := v.GetString(flagMountsFile); len(mountsFile) > 0 {
		fileConfigs, err := mount.ReadConfigFile(mountsFile)
		if err != nil {
			return nil, err
		}
		configs = append(configs, fileConfigs...)
	}
	pairs, err := mount.ParsePairs(v.GetString(flagMounts))
	if err != nil {
		return nil, fmt.Errorf("invalid format for mounts: %w", err)
	}
	return append(configs, pairs...), nil
}

func initDrivers(v *viper.Viper, configs []mount.Config) ([]driver.Driver, error) {
	options := driver.ReadOptions{
		Threshold: v.GetInt64(flagStreamThreshold),
		Chunks:    v.GetInt(flagStreamChunks),
	}
	httpTimeout, err := parseDuration(v, flagHTTPTimeout, "http timeout")
	if err != nil {
		return nil, err
	}
	base := afero.NewOsFs()
	drivers := []driver.Driver{
		lfs.New(base, options),
		zipfs.New(base, options),
		tarfs.New(base, options),
		cpiofs.New(base, options),
		httpfs.New(&http.Client{Timeout: httpTimeout}, options),
	}
	for _, c := range configs {
		if strings.HasPrefix(c.Source, s3fs.Scheme) {
			drivers = append(drivers, s3fs.New(initS3Client(v), options))
			break
		}
	}
	return drivers, nil
}

func initEvfs(v *viper.Viper, logger log.Logger) (*evfs.Evfs, error) {
	configs, err := initMounts(v)
	if err != nil {
		return nil, fmt.Errorf("error initializing mounts: %w", err)
	}

	drivers, err := initDrivers(v, configs)
	if err != nil {
		return nil, fmt.Errorf("error initializing drivers: %w", err)
	}

	e, err := evfs.New(&evfs.Config{
		Workers:  v.GetInt(flagWorkers),
		MaxDepth: v.GetInt(flagMaxDepth),
		Drivers:  drivers,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating evfs: %w", err)
	}

	for _, c := range configs {
		if err := e.Mount(c.Target, c.Source); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("error mounting %q at %q: %w", c.Source, c.Target, err)
		}
	}

	return e, nil
}

// loadFiles loads the paths with at most parallel loads in flight and returns their contents in order.
func loadFiles(ctx context.Context, e *evfs.Evfs, logger log.Logger, paths []string, parallel int) ([][]byte, error) {
	results := make([][]byte, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			handle := e.LoadFileContext(ctx, p)
			defer handle.Close()
			data, err := handle.Wait(func(f float32) {
				_ = logger.Debug("Progress", map[string]interface{}{
					"path":     p,
					"trace_id": handle.ID(),
					"progress": f,
				})
			})
			if err != nil {
				return fmt.Errorf("error loading %q: %w", p, err)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func main() {

	rootCommand := &cobra.Command{
		Use:                   `evfs [flags]`,
		DisableFlagsInUseLine: true,
		Short:                 "evfs is a virtual file system that loads files from directories, archives, and remote locations.",
	}

	loadCommand := &cobra.Command{
		Use:                   `load [flags] PATH [PATH...]`,
		DisableFlagsInUseLine: true,
		Short:                 "load files from the virtual file system",
		Example: `load --mounts '[["/data", "/srv/data"]]' /data/bundle.zip/docs/readme.md
load --mounts-file mounts.toml --digest /data/image.cpio.gz/init /bucket/release.tar.zst/bin/tool`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := initViper(cmd)
			if err != nil {
				return fmt.Errorf("error initializing viper: %w", err)
			}

			if len(args) == 0 {
				return cmd.Usage()
			}

			if errConfig := checkConfig(v); errConfig != nil {
				return errConfig
			}

			parallel := v.GetInt(flagParallel)
			if parallel < 1 {
				return fmt.Errorf("invalid parallel %d, must be at least 1", parallel)
			}

			logger, closeLogger, err := initLogger(v)
			if err != nil {
				return fmt.Errorf("error initializing logger: %w", err)
			}
			defer func() { _ = closeLogger() }()

			e, err := initEvfs(v, logger)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			results, err := loadFiles(cmd.Context(), e, logger, args, parallel)
			if err != nil {
				return err
			}

			output := v.GetString(flagOutput)
			for i, data := range results {
				switch {
				case v.GetBool(flagDigest):
					digest := blake3.Sum256(data)
					fmt.Printf("%s  %s\n", hex.EncodeToString(digest[:]), args[i])
				case len(output) > 0:
					outputPath := filepath.Join(output, path.Base(args[i]))
					if err := os.WriteFile(outputPath, data, 0600); err != nil {
						return fmt.Errorf("error writing %q: %w", outputPath, err)
					}
				default:
					if _, err := os.Stdout.Write(data); err != nil {
						return fmt.Errorf("error writing to stdout: %w", err)
					}
				}
			}
			return nil
		},
	}
	initLoadFlags(loadCommand.Flags())

	serveCommand := &cobra.Command{
		Use:                   `serve [flags]`,
		DisableFlagsInUseLine: true,
		Short:                 "serve the virtual file system over http",
		Example: `serve --addr :8080 --mounts '[["/", "/srv/www"], ["/assets", "/srv/assets.zip"]]'
serve --addr :8443 --server-cert server.crt --server-key server.key --mounts-file mounts.yaml`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := initViper(cmd)
			if err != nil {
				return fmt.Errorf("error initializing viper: %w", err)
			}

			if len(args) > 0 {
				return cmd.Usage()
			}

			if errConfig := checkServeConfig(v); errConfig != nil {
				return errConfig
			}

			logger, closeLogger, err := initLogger(v)
			if err != nil {
				return fmt.Errorf("error initializing logger: %w", err)
			}
			defer func() { _ = closeLogger() }()

			var index template.Template
			if !v.GetBool(flagNoIndex) {
				if indexTemplatePath := v.GetString(flagIndexTemplate); len(indexTemplatePath) > 0 {
					index, err = template.ParseFile("index.html", indexTemplatePath)
					if err != nil {
						return fmt.Errorf("error parsing index template: %w", err)
					}
					_ = logger.Log("Using index template", map[string]interface{}{
						"path": indexTemplatePath,
					})
				} else {
					index, err = template.DefaultMountIndex()
					if err != nil {
						return fmt.Errorf("error parsing default index template: %w", err)
					}
				}
			}

			e, err := initEvfs(v, logger)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			listenAddress := v.GetString(flagListenAddress)
			serverCert := v.GetString(flagDefaultServerCert)
			serverKey := v.GetString(flagDefaultServerKey)

			httpServer := &http.Server{
				Addr:         listenAddress,
				IdleTimeout:  v.GetDuration(flagTimeoutIdle),
				ReadTimeout:  v.GetDuration(flagTimeoutRead),
				WriteTimeout: v.GetDuration(flagTimeoutWrite),
				ErrorLog:     log.WrapStandardLogger(logger),
				Handler:      server.NewHandler(e, logger, index, EvfsVersion),
			}

			if len(serverCert) > 0 {
				httpServer.TLSConfig = &tls.Config{
					MinVersion: TLSVersionIdentifiers[v.GetString(flagTLSMinVersion)],
				}
			}

			// If dry run, then return before starting servers.
			if v.GetBool(flagDryRun) {
				return nil
			}

			_ = logger.Log("Starting server", map[string]interface{}{
				"addr":         listenAddress,
				"tls":          len(serverCert) > 0,
				"mounts":       len(e.Mounts()),
				"idleTimeout":  httpServer.IdleTimeout.String(),
				"readTimeout":  httpServer.ReadTimeout.String(),
				"writeTimeout": httpServer.WriteTimeout.String(),
			})

			if len(serverCert) > 0 {
				return httpServer.ListenAndServeTLS(serverCert, serverKey)
			}
			return httpServer.ListenAndServe()
		},
	}
	initServeFlags(serveCommand.Flags())

	mountsCommand := &cobra.Command{
		Use:                   `mounts [flags]`,
		DisableFlagsInUseLine: true,
		Short:                 "show the mount table built from the configuration",
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := initViper(cmd)
			if err != nil {
				return fmt.Errorf("error initializing viper: %w", err)
			}
			if len(args) > 0 {
				return cmd.Usage()
			}
			if errConfig := checkConfig(v); errConfig != nil {
				return errConfig
			}
			logger, closeLogger, err := initLogger(v)
			if err != nil {
				return fmt.Errorf("error initializing logger: %w", err)
			}
			defer func() { _ = closeLogger() }()
			e, err := initEvfs(v, logger)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()
			for _, m := range e.Mounts() {
				fmt.Println(m.String())
			}
			return nil
		},
	}
	initEvfsFlags(mountsCommand.Flags())

	driversCommand := &cobra.Command{
		Use:                   `drivers`,
		DisableFlagsInUseLine: true,
		Short:                 "show the default drivers in the order they are tried",
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Usage()
			}
			for _, d := range evfs.DefaultDrivers(driver.DefaultReadOptions()) {
				fmt.Println(d.Name())
			}
			fmt.Println(s3fs.DriverName)
			return nil
		},
	}

	versionCommand := &cobra.Command{
		Use:                   `version`,
		DisableFlagsInUseLine: true,
		Short:                 "show version",
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(EvfsVersion)
			return nil
		},
	}

	rootCommand.AddCommand(loadCommand, serveCommand, mountsCommand, driversCommand, versionCommand)

	if err := rootCommand.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "evfs: "+err.Error())
		_, _ = fmt.Fprintln(os.Stderr, "Try evfs --help for more information.")
		os.Exit(1)
	}
}
