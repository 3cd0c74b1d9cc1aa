package barstore

const Schema = `
CREATE TABLE IF NOT EXISTS series (
	symbol TEXT NOT NULL,
	period TEXT NOT NULL,
	bars INTEGER NOT NULL,
	created DATETIME NOT NULL,
	PRIMARY KEY (symbol, period)
);

CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	period TEXT NOT NULL,
	date TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	ma20 REAL,
	PRIMARY KEY (symbol, period, date)
);
`
