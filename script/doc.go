// Package script parses and runs recovery shell scripts.
//
// # Script Format
//
// One statement per line. Leading and trailing blanks are ignored.
//
//	# comment             skipped, as are blank lines
//	exit                  stop executing
//	getenv <name>         print an environment variable
//	info                  print the device identification fields
//	info <key>            print a device info value by key
//	<anything else>       send the line as a command, print the response
//
// Example script:
//
//	# boot the uploaded iBEC
//	getenv build-version
//	setenv auto-boot false
//	saveenv
//	go
//
// # Usage
//
//	sc, err := script.Parse("boot.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := script.NewRunner(sess, os.Stdout, nil)
//	if err := r.Run(ctx, sc); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// Parse reports malformed lines as *ParseError with the line number. Run
// stops at the first failing statement and returns an *ExecError wrapping
// the device error, so errors.Is works against the recovery sentinels.
package script
