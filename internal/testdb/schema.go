package testdb

// DrupalSchema is the subset of a Drupal 10 + Commerce database that the
// helpers read and write, reduced to the columns they touch.
const DrupalSchema = `
CREATE TABLE node (
	nid INTEGER PRIMARY KEY AUTOINCREMENT,
	vid INTEGER,
	type TEXT NOT NULL,
	uuid TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en'
);

CREATE TABLE node_field_data (
	nid INTEGER NOT NULL,
	vid INTEGER,
	type TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en',
	status INTEGER NOT NULL DEFAULT 1,
	uid INTEGER NOT NULL DEFAULT 1,
	title TEXT NOT NULL,
	created INTEGER NOT NULL DEFAULT 0,
	changed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE taxonomy_term_data (
	tid INTEGER PRIMARY KEY AUTOINCREMENT,
	revision_id INTEGER,
	vid TEXT NOT NULL,
	uuid TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en'
);

CREATE TABLE menu_link_content (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	revision_id INTEGER,
	bundle TEXT NOT NULL DEFAULT 'menu_link_content',
	uuid TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en'
);

CREATE TABLE file_managed (
	fid INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en',
	uid INTEGER,
	filename TEXT,
	uri TEXT NOT NULL,
	filemime TEXT,
	filesize INTEGER,
	status INTEGER NOT NULL DEFAULT 1,
	created INTEGER,
	changed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE users (
	uid INTEGER PRIMARY KEY,
	uuid TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en'
);

CREATE TABLE users_field_data (
	uid INTEGER NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en',
	name TEXT NOT NULL,
	pass TEXT,
	mail TEXT,
	status INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE path_alias (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	revision_id INTEGER,
	uuid TEXT NOT NULL DEFAULT '',
	langcode TEXT NOT NULL DEFAULT 'und',
	path TEXT NOT NULL,
	alias TEXT NOT NULL,
	status INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE watchdog (
	wid INTEGER PRIMARY KEY AUTOINCREMENT,
	uid INTEGER NOT NULL DEFAULT 0,
	type TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	variables TEXT NOT NULL DEFAULT '',
	severity INTEGER NOT NULL DEFAULT 0,
	link TEXT,
	location TEXT NOT NULL DEFAULT '',
	referer TEXT,
	hostname TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE commerce_product (
	product_id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	uuid TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en'
);

CREATE TABLE commerce_product_field_data (
	product_id INTEGER NOT NULL,
	type TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en',
	title TEXT NOT NULL,
	uid INTEGER NOT NULL DEFAULT 1,
	status INTEGER NOT NULL DEFAULT 1,
	created INTEGER,
	changed INTEGER
);

CREATE TABLE commerce_product_variation (
	variation_id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	uuid TEXT NOT NULL,
	langcode TEXT NOT NULL DEFAULT 'en'
);

CREATE TABLE cache_entity (
	cid TEXT PRIMARY KEY,
	data BLOB,
	expire INTEGER NOT NULL DEFAULT 0,
	created REAL NOT NULL DEFAULT 0,
	serialized INTEGER NOT NULL DEFAULT 0,
	tags TEXT,
	checksum TEXT NOT NULL DEFAULT ''
);

CREATE TABLE cache_render (
	cid TEXT PRIMARY KEY,
	data BLOB,
	expire INTEGER NOT NULL DEFAULT 0,
	created REAL NOT NULL DEFAULT 0,
	serialized INTEGER NOT NULL DEFAULT 0,
	tags TEXT,
	checksum TEXT NOT NULL DEFAULT ''
);
`
