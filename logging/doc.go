/*
Package logging implements application log instrumentation and Apache
combined access log.

# Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

Packages usually log through the Logger interface, which is passed in
during construction. DefaultLog implements it on top of the logrus
standard logger, so entries end up in the same output.

During startup initialization, it is possible to redirect the log output
from the default /dev/stderr to another file, and to set a common
prefix for each log entry. Setting the prefix may be a good idea when
the access log is enabled and its output is the same as the one of the
application log, to make it easier to split the output for diagnostics.

# Access Log

The access log prints HTTP access information in the Apache combined
access log format, extended with the request duration in milliseconds,
the requested host, the flow id and the URL taken from the
X-CF-Forwarded-Url header, or "-" when these are missing. The
credentials of the forwarded URL are redacted. Optionally, the entries
can be printed as JSON. To output entries, use the LogAccess function. The proxy logs an entry for
every request it serves, unless the access log was disabled.
*/
package logging
